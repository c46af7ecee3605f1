package utils

import (
	"fmt"
	"math/rand"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

var commonFirstNames = []string{
	"Ana", "Bruno", "Carla", "Daniel", "Eduarda", "Felipe", "Gabriela", "Henrique",
	"Isabela", "João", "Larissa", "Marcos", "Natália", "Otávio", "Patrícia", "Rafael",
	"Sofia", "Thiago", "Vanessa", "William",
}

var commonSurnames = []string{
	"Silva", "Santos", "Oliveira", "Souza", "Pereira", "Lima", "Costa", "Ferreira",
	"Rodrigues", "Almeida", "Nascimento", "Carvalho", "Gomes", "Martins", "Araújo",
	"Ribeiro", "Barbosa", "Rocha", "Dias", "Moreira",
}

func GenerateRandomBrazilianName() string {
	first := commonFirstNames[rand.Intn(len(commonFirstNames))]
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	if rand.Intn(2) == 0 {
		second := commonSurnames[rand.Intn(len(commonSurnames))]
		return first + " " + second + " " + surname
	}
	return first + " " + surname
}

var digits = "0123456789"

// GenerateUsernameFromName lowercases the first and last name, strips the
// accents used in the name pools and appends a few digits.
func GenerateUsernameFromName(fullName string) string {
	replacer := strings.NewReplacer(
		"á", "a", "ã", "a", "â", "a", "é", "e", "ê", "e",
		"í", "i", "ó", "o", "õ", "o", "ú", "u", "ç", "c",
	)

	parts := strings.Fields(strings.ToLower(replacer.Replace(fullName)))
	username := parts[0]
	if len(parts) > 1 {
		username += "." + parts[len(parts)-1]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

// GenerateRandomRegistrationID builds a CRECI-looking number.
func GenerateRandomRegistrationID() string {
	return fmt.Sprintf("CRECI-%05d", rand.Intn(100000))
}

// GenerateRandomAvailability picks a random non-empty set of half days for
// each weekday, guaranteeing at least Monday through Friday are covered.
func GenerateRandomAvailability() domain.Availability {
	availability := make(domain.Availability)
	for weekday := int32(0); weekday <= 6; weekday++ {
		isWorkday := weekday >= 1 && weekday <= 5
		switch rand.Intn(4) {
		case 0:
			availability[weekday] = []domain.Shift{domain.ShiftMorning, domain.ShiftAfternoon}
		case 1:
			availability[weekday] = []domain.Shift{domain.ShiftMorning}
		case 2:
			availability[weekday] = []domain.Shift{domain.ShiftAfternoon}
		default:
			if isWorkday {
				availability[weekday] = []domain.Shift{domain.ShiftMorning, domain.ShiftAfternoon}
			}
		}
	}
	return availability
}

func GenerateRandomBroker(password string, emailDomainName string) (*domain.Broker, error) {
	fullName := GenerateRandomBrazilianName()
	username := GenerateUsernameFromName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	broker := &domain.Broker{
		Username:       username,
		PasswordHash:   string(passwordHash),
		FullName:       fullName,
		Email:          username + "@" + emailDomainName,
		RegistrationID: GenerateRandomRegistrationID(),
		Role:           domain.RoleBroker,
		Availability:   GenerateRandomAvailability(),
		IsActive:       true,
	}

	return broker, nil
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	password := make([]rune, length)
	for i := range password {
		password[i] = letters[rand.Intn(len(letters))]
	}
	return string(password)
}
