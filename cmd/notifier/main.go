package main

import (
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"

	"github.com/plantao-dev/broker-scheduler/backend/internal/config"
	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

type emailTemplate struct {
	subject string
	body    *template.Template
}

// Bodies receive the notification payload decoded from JSON, so the field
// names here are the lowercase JSON keys.
var emailTemplates = map[string]emailTemplate{
	"create_broker": {
		subject: "Escala de Plantões - Dados de acesso",
		body: template.Must(template.New("create_broker").Parse(`
			<p>Olá, {{.fullName}}!</p>
			<p>Seu cadastro no sistema de escala de plantões foi criado.</p>
			<p>Usuário: <strong>{{.username}}</strong><br>Senha: <strong>{{.password}}</strong></p>
			<p>Altere a senha no primeiro acesso.</p>`)),
	},
	"reset_password": {
		subject: "Escala de Plantões - Redefinição de senha",
		body: template.Must(template.New("reset_password").Parse(`
			<p>Olá, {{.fullName}}!</p>
			<p>Seu código de verificação é <strong>{{.otp}}</strong>.</p>
			<p>Ele expira em {{.expiration}} minutos.</p>`)),
	},
	"change_email": {
		subject: "Escala de Plantões - Alteração de email",
		body: template.Must(template.New("change_email").Parse(`
			<p>Olá, {{.fullName}}!</p>
			<p>Use o código <strong>{{.otp}}</strong> para confirmar o novo email.</p>
			<p>Ele expira em {{.expiration}} minutos.</p>`)),
	},
	"schedule_generated": {
		subject: "Escala de Plantões - Escala gerada",
		body: template.Must(template.New("schedule_generated").Parse(`
			<p>Olá, {{.fullName}}!</p>
			<p>A geração da escala foi concluída ({{.weekCount}} semana(s), {{.assignedCount}} plantões atribuídos, {{.violationCount}} aviso(s)).</p>
			<p>Identificador da execução: {{.runID}}</p>`)),
	},
	"replacement_applied": {
		subject: "Escala de Plantões - Novo plantão atribuído",
		body: template.Must(template.New("replacement_applied").Parse(`
			<p>Olá, {{.fullName}}!</p>
			<p>Você assumiu o plantão de <strong>{{.locationName}}</strong> no dia {{.date}}, turno da {{.shift}}.</p>`)),
	},
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("não foi possível carregar a configuração", slog.String("error", err.Error()))
		return
	}

	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
	)
	if err != nil {
		logger.Error("não foi possível criar o cliente de email", slog.String("error", err.Error()))
		return
	}
	defer client.Close()

	clientDialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
	defer cancel()
	if err := client.DialWithContext(clientDialCtx); err != nil {
		logger.Error("não foi possível conectar ao servidor de email", slog.String("error", err.Error()))
		return
	}

	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("não foi possível conectar ao rabbitmq", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("não foi possível abrir o canal", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		cfg.RabbitMQ.Queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Error("não foi possível declarar a fila", slog.String("error", err.Error()))
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	msgs, err := ch.Consume(
		q.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Error("não foi possível consumir mensagens", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				logger.Info("mensagem recebida", slog.String("message", string(msg.Body)))

				notification := domain.NotificationMessage{}
				if err := json.Unmarshal(msg.Body, &notification); err != nil {
					logger.Error("falha ao decodificar a notificação", slog.String("error", err.Error()))
					_ = msg.Nack(false, false)
					continue
				}

				tmpl, ok := emailTemplates[notification.Type]
				if !ok {
					logger.Error("tipo de notificação não suportado", slog.String("type", notification.Type))
					_ = msg.Nack(false, false)
					continue
				}

				email := mail.NewMsg()
				if err := email.From(cfg.Email.SMTP.Username); err != nil {
					logger.Error("não foi possível definir o remetente", slog.String("error", err.Error()))
					_ = msg.Nack(false, false)
					continue
				}
				if err := email.To(notification.To); err != nil {
					logger.Error("não foi possível definir o destinatário", slog.String("error", err.Error()))
					_ = msg.Nack(false, false)
					continue
				}

				email.Subject(tmpl.subject)
				if err := email.SetBodyHTMLTemplate(tmpl.body, notification.Data); err != nil {
					logger.Error("não foi possível montar o corpo do email", slog.String("error", err.Error()))
					_ = msg.Nack(false, false)
					continue
				}

				if err := client.DialAndSend(email); err != nil {
					logger.Error("falha ao enviar o email", slog.String("error", err.Error()))
					_ = msg.Nack(false, true) // requeue for another attempt
					continue
				}

				_ = msg.Ack(false)
			}
		}
	}()

	logger.Info("aguardando mensagens... (CTRL+C para sair)")
	<-sigChan

	slog.Info("encerrando o notifier...")
	cancel()
	wg.Wait()
	slog.Info("notifier encerrado com sucesso")
}
