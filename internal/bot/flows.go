package bot

import (
	"errors"
	"strconv"
	"strings"

	"github.com/apoxa-tati/HH-Jobs-Bot/internal/dialog"
)

const (
	flowRegistration = "registration"
	flowSearch       = "search"

	keyFullName  = "full_name"
	keyCity      = "city"
	keyPosition  = "desired_position"
	keySkills    = "skills"
	keyResume    = "resume"
	keyMinSalary = "min_salary"
)

var errEmptyAnswer = errors.New("empty answer")

func registrationFlow() *dialog.Flow {
	return &dialog.Flow{
		Name: flowRegistration,
		Steps: []dialog.Step{
			{Key: keyFullName, Prompt: "Как вас зовут?\n(Фамилия и имя)", Parse: nonEmpty},
			{Key: keyCity, Prompt: "Отлично! В каком городе ищете работу?", Parse: nonEmpty},
			{Key: keyPosition, Prompt: "Какую должность вы ищете?\n(например: Python разработчик)", Parse: nonEmpty},
			{Key: keySkills, Prompt: "Перечислите ваши ключевые навыки:\n(например: Python, Django, PostgreSQL, Docker)", Parse: nonEmpty},
			{Key: keyResume, Prompt: "Напишите краткое резюме о себе:\n(опыт работы, образование, достижения)", Parse: nonEmpty},
		},
	}
}

func searchFlow() *dialog.Flow {
	return &dialog.Flow{
		Name: flowSearch,
		Steps: []dialog.Step{
			{Key: keyPosition, Prompt: "🔍 Настройка поиска вакансий\n\nКакую должность вы ищете?\nНапример: Тестировщик", Parse: nonEmpty},
			{Key: keyCity, Prompt: "В каком городе ищете работу?\nНапример: Санкт-Петербург", Parse: nonEmpty},
			{
				Key:    keyMinSalary,
				Prompt: "Укажите минимальную зарплату (руб):\nИли напишите 0, если не важно",
				Retry:  "Пожалуйста, введите число для зарплаты:",
				Parse:  parseSalary,
			},
		},
	}
}

func nonEmpty(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errEmptyAnswer
	}
	return text, nil
}

// parseSalary accepts a non-negative integer. Spaces between digit groups are allowed.
func parseSalary(text string) (string, error) {
	cleaned := strings.Join(strings.Fields(text), "")
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", errors.New("salary must not be negative")
	}
	return strconv.Itoa(n), nil
}

// salaryPtr converts a parsed salary into the nullable filter value. Zero means no floor.
func salaryPtr(value string) *int {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}
