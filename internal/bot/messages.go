package bot

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/apoxa-tati/HH-Jobs-Bot/internal/storage"
)

const (
	callbackResume         = "resume_"
	callbackCoverLetter    = "cover_"
	callbackNotInteresting = "not_interesting_"

	descriptionPreview = 100
)

const (
	textWelcome = "👋 Добро пожаловать в HH Bot!\n\n" +
		"Давайте зарегистрируем ваш профиль."
	textWelcomeBack = "С возвращением, %s! 👋\n\n" +
		"Используйте:\n" +
		"/search - настройки поиска\n" +
		"/find - поиск вакансий\n" +
		"/profile - ваш профиль\n" +
		"/help - помощь"
	textHelp = "🤖 Помощь по боту:\n\n" +
		"Основные команды:\n" +
		"/start - регистрация/профиль\n" +
		"/profile - мой профиль\n" +
		"/search - настройки поиска (автоматически запускает поиск)\n" +
		"/search_settings - текущие настройки поиска\n" +
		"/find - поиск вакансий по сохраненным настройкам\n" +
		"/cancel - отменить текущее действие\n" +
		"/help - помощь\n\n" +
		"Тонкая настройка:\n" +
		"/set_position [должность]\n" +
		"/set_city [город]\n" +
		"/set_min_salary [число, 0 - без ограничения]\n" +
		"/set_freshness [дней, 1-30]\n\n" +
		"Генерация резюме и писем:\n" +
		textLLMCommands + "\n\n" +
		"Каждое утро бот присылает подборку свежих вакансий по вашим настройкам."
	textLLMCommands = "/set_llm_base_url [URL] - Установить URL LLM API\n" +
		"/set_llm_api_key [ключ] - Установить API ключ\n" +
		"/set_llm_model [название модели] - Установить модель"
	textLLMRequired = "Для генерации необходимо настроить параметры LLM.\n" +
		"Используйте команды:\n" + textLLMCommands

	textRegistrationDone = "✅ Регистрация завершена!\n\n" +
		"📋 Ваш профиль:\n" +
		"👤 %s\n" +
		"🏙️ %s\n" +
		"💼 %s\n" +
		"🛠️ Навыки: %s\n\n" +
		"Теперь настройте поиск вакансий: /search"
	textRegistrationFailed = "❌ Не удалось сохранить профиль.\n" +
		"Попробуйте снова: /start"
	textNotRegistered = "Сначала зарегистрируйтесь, используя команду /start"
	textNoProfile     = "❌ У вас нет профиля. Зарегистрируйтесь: /start"

	textSearchSaved   = "✅ Базовые настройки сохранены!"
	textSearching     = "🔍 Ищу вакансии по вашим настройкам..."
	textFound         = "📋 Найдено вакансий: %d"
	textNothingFound  = "😔 По вашим настройкам ничего не найдено\nПопробуйте изменить параметры: /search"
	textNoFilter      = "❌ У вас нет сохраненных настроек поиска.\nСначала настройте параметры: /search"
	textSearchFailed  = "Произошла ошибка при поиске вакансий. Пожалуйста, попробуйте позже."
	textGenericError  = "Произошла ошибка. Пожалуйста, попробуйте позже."
	textCancelled     = "Действие отменено."
	textNothingCancel = "Нечего отменять."

	textGreeting      = "Привет! 👋 Используйте /start для начала работы"
	textSearchHint    = "Используйте /search для настройки поиска"
	textUnknownCmd    = "Команда %s не найдена. Используйте /help"
	textUnknownText   = "Не понял ваш запрос 🤔\nИспользуйте /help для списка команд"
	textVacancyAbsent = "Ошибка: вакансия не найдена."

	textGenerating       = "Генерирую..."
	textResumeReady      = "Ваше персонализированное резюме:\n\n"
	textCoverReady       = "Ваше персонализированное сопроводительное письмо:\n\n"
	textResumeFailed     = "Произошла ошибка при генерации резюме. Пожалуйста, попробуйте позже."
	textCoverFailed      = "Произошла ошибка при генерации сопроводительного письма. Пожалуйста, попробуйте позже."
	textNotInterestingOK = "Вакансия отмечена как неинтересная. Спасибо за обратную связь!"
	textMarked           = "Отмечено"
)

const (
	textSetPositionUsage  = "Пожалуйста, укажите желаемую должность. Пример: /set_position Python разработчик"
	textSetCityUsage      = "Пожалуйста, укажите город. Пример: /set_city Москва"
	textSetSalaryUsage    = "Пожалуйста, укажите минимальную зарплату числом. Пример: /set_min_salary 100000"
	textSetFreshnessUsage = "Пожалуйста, укажите число дней от 1 до 30. Пример: /set_freshness 3"
	textSetBaseURLUsage   = "Пожалуйста, укажите URL LLM API. Пример: /set_llm_base_url https://api.openai.com/v1"
	textSetAPIKeyUsage    = "Пожалуйста, укажите API ключ LLM. Пример: /set_llm_api_key your_api_key_here"
	textSetModelUsage     = "Пожалуйста, укажите название модели LLM. Пример: /set_llm_model gpt-4o-mini"

	textPositionSet  = "Ваша желаемая должность установлена как: %s"
	textCitySet      = "Ваш город установлен как: %s"
	textSalarySet    = "Минимальная зарплата установлена: %d"
	textSalaryReset  = "Ограничение по зарплате снято."
	textFreshnessSet = "Свежесть вакансий: %d дн."
	textBaseURLSet   = "URL LLM API установлен как: %s"
	textAPIKeySet    = "API ключ LLM установлен."
	textModelSet     = "Модель LLM установлена как: %s"
)

func botCommands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "start", Description: "Начать работу"},
		{Command: "search", Description: "Настройки поиска"},
		{Command: "find", Description: "Поиск вакансий"},
		{Command: "search_settings", Description: "Текущие настройки поиска"},
		{Command: "profile", Description: "Мой профиль"},
		{Command: "cancel", Description: "Отменить действие"},
		{Command: "help", Description: "Помощь"},
	}
}

func orDash(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func yesNo(v bool) string {
	if v {
		return "Да"
	}
	return "Нет"
}

func formatProfile(u *storage.User) string {
	var b strings.Builder
	b.WriteString("📋 Ваш профиль:\n\n")
	fmt.Fprintf(&b, "👤 Имя: %s\n", orDash(u.FullName, "Не указано"))
	fmt.Fprintf(&b, "🏙️ Город: %s\n", orDash(u.City, "Не указан"))
	fmt.Fprintf(&b, "💼 Должность: %s\n", orDash(u.DesiredPosition, "Не указана"))
	fmt.Fprintf(&b, "🛠️ Навыки: %s\n", orDash(u.Skills, "Не указаны"))
	fmt.Fprintf(&b, "📄 Резюме: %s\n", orDash(u.BaseResume, "Отсутствует"))

	llm := "не настроена"
	if u.LLMAPIKey != "" {
		llm = orDash(u.LLMModel, "модель по умолчанию")
	}
	fmt.Fprintf(&b, "🤖 LLM: %s\n\n", llm)
	b.WriteString("Настроить поиск: /search")

	return b.String()
}

func formatFilter(f *storage.VacancyFilter) string {
	salary := "Не указана"
	if f.Salary() > 0 {
		salary = strconv.Itoa(f.Salary())
	}

	var b strings.Builder
	b.WriteString("Ваши текущие настройки поиска:\n\n")
	fmt.Fprintf(&b, "Желаемая должность: %s\n", orDash(f.DesiredPosition, "Не указана"))
	fmt.Fprintf(&b, "Город: %s\n", orDash(f.City, "Не указан"))
	fmt.Fprintf(&b, "Минимальная зарплата: %s\n", salary)
	fmt.Fprintf(&b, "Свежесть вакансий: %d дн.\n", f.FreshnessDays)
	if len(f.MetroStations) > 0 {
		fmt.Fprintf(&b, "Метро: %s\n", strings.Join(f.MetroStations, ", "))
	}
	fmt.Fprintf(&b, "Тип занятости: %s\n", orDash(f.EmploymentType, "Любой"))
	fmt.Fprintf(&b, "Опыт работы: %s\n", orDash(f.Experience, "Любой"))
	fmt.Fprintf(&b, "Только прямые работодатели: %s\n", yesNo(f.DirectEmployersOnly))
	fmt.Fprintf(&b, "Только ТОП-компании: %s\n\n", yesNo(f.TopCompaniesOnly))
	b.WriteString("Для изменения настроек используйте /search или команды:\n")
	b.WriteString("/set_position [название должности]\n")
	b.WriteString("/set_city [название города]\n")
	b.WriteString("/set_min_salary [число]\n")
	b.WriteString("/set_freshness [дней]")

	return b.String()
}

// FormatVacancy renders a vacancy card.
func FormatVacancy(v *storage.Vacancy) string {
	var b strings.Builder
	if v.City != "" {
		fmt.Fprintf(&b, "📍 %s\n", v.City)
	}
	fmt.Fprintf(&b, "🏢 %s\n", orDash(v.Company, "Не указано"))
	fmt.Fprintf(&b, "💼 %s\n", orDash(v.Title, "Без названия"))
	if v.Salary != "" {
		fmt.Fprintf(&b, "💰 %s\n", v.Salary)
	}
	if description := strings.TrimSpace(v.Description); description != "" {
		if utf8.RuneCountInString(description) > descriptionPreview {
			description = string([]rune(description)[:descriptionPreview]) + "..."
		}
		fmt.Fprintf(&b, "📝 %s\n", description)
	}
	if v.URL != "" {
		fmt.Fprintf(&b, "🔗 %s", v.URL)
	}

	return strings.TrimRight(b.String(), "\n")
}

func vacancyKeyboard(externalID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Сгенерировать резюме", callbackResume+externalID),
			tgbotapi.NewInlineKeyboardButtonData("Сгенерировать cover letter", callbackCoverLetter+externalID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Неинтересно", callbackNotInteresting+externalID),
		),
	)
}
