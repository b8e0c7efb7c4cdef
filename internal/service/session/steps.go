package session

import (
	"errors"
	"strconv"
	"strings"

	"github.com/zhouzirui/cv-master/backend/internal/model/cv"
)

// Template ids accepted at the template step.
const (
	MinTemplateID = 1
	MaxTemplateID = 5
)

const skipSentinel = "SKIP"

var errInvalidTemplate = errors.New("template choice out of range")

// transition describes how an answer given at one step is recorded and where the session goes next.
type transition struct {
	write func(d *cv.Draft, answer string) error
	next  cv.Step
}

var transitions = map[cv.Step]transition{
	cv.StepIntroduction: {write: func(*cv.Draft, string) error { return nil }, next: cv.StepContact},
	cv.StepContact:      {write: func(d *cv.Draft, a string) error { d.ContactInfo = a; return nil }, next: cv.StepRole},
	cv.StepRole:         {write: func(d *cv.Draft, a string) error { d.TargetRole = a; return nil }, next: cv.StepExperience},
	cv.StepExperience:   {write: func(d *cv.Draft, a string) error { d.Experience = a; return nil }, next: cv.StepEducation},
	cv.StepEducation:    {write: func(d *cv.Draft, a string) error { d.Education = a; return nil }, next: cv.StepSkills},
	cv.StepSkills:       {write: func(d *cv.Draft, a string) error { d.Skills = a; return nil }, next: cv.StepPhoto},
	cv.StepPhoto:        {write: writePhoto, next: cv.StepTemplate},
	cv.StepTemplate:     {write: writeTemplate, next: cv.StepGenerating},
}

func writePhoto(d *cv.Draft, answer string) error {
	if strings.EqualFold(strings.TrimSpace(answer), skipSentinel) {
		d.PhotoURL = cv.PlaceholderPhotoURL
		return nil
	}
	d.PhotoURL = answer
	return nil
}

func writeTemplate(d *cv.Draft, answer string) error {
	id, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		return errInvalidTemplate
	}
	return applyTemplate(d, id)
}

func applyTemplate(d *cv.Draft, id int) error {
	if id < MinTemplateID || id > MaxTemplateID {
		return errInvalidTemplate
	}
	d.TemplateChoice = strconv.Itoa(id)
	return nil
}

// Assistant messages.
const (
	welcomeMessage = "Здраво! Јас сум **CV Master**. Ќе ти помогнам да креираш професионално CV.\n\n" +
		"Процесот е краток и се состои од **7 прашања**.\n\n" +
		"Дали си подготвен/а да започнеме?"
	invalidTemplateMessage = "Ве молам изберете број од 1 до 5 од опциите погоре."
	completedMessage       = "Готово! Твоето CV е подготвено.\n\nКликни на копчето \"Отвори Преглед\" подолу за да го видиш и зачуваш."
	generationFailedNotice = "Се појави грешка при генерирањето. Ве молам обидете се повторно."
	templateSelectedFormat = "Избрав опција бр. %d"
)

// prompts holds the question asked when a step is entered.
var prompts = map[cv.Step]string{
	cv.StepContact: "**Чекор 1: Контакт.**\n\nВе молам напишете го вашето: **Име и Презиме, Телефон, Е-mail, Град/Држава** и опционално LinkedIn линк.",
	cv.StepRole:    "**Чекор 2: Целна Позиција.**\n\nЗа која специфична работна позиција аплицирате?",
	cv.StepExperience: "**Чекор 3: Искуство.** (Најважниот дел)\n\nНаведете ги последните 2-3 работни искуства.\n\n" +
		"*Формат:* Име на компанија, Позиција, Години.\n*Важно:* Наведете по 1 клучно достигнување за секоја позиција.",
	cv.StepEducation: "**Чекор 4: Образование.**\n\nКој е вашиот највисок степен на образование, име на факултет/училиште и година на дипломирање?",
	cv.StepSkills:    "**Чекор 5: Вештини.**\n\nНабројте 5 клучни **технички вештини** (алатки, јазици) и 3 **меки вештини** (soft skills).",
	cv.StepPhoto: "**Чекор 6: Фотографија.**\n\nВе молам залепете URL линк до вашата фотографија.\n\n" +
		"Ако немате, напишете **SKIP** и јас ќе ставам привремена слика.",
	cv.StepTemplate: "**Чекор 7: Избор на Шаблон.**\n\nВе молам одберете еден од стиловите подолу:",
}
