package cv

// Step is the position of a session in the questionnaire. Steps only move forward.
type Step int

const (
	StepIntroduction Step = iota
	StepContact
	StepRole
	StepExperience
	StepEducation
	StepSkills
	StepPhoto
	StepTemplate
	StepGenerating
	StepCompleted
)

// QuestionCount is the number of questions the user answers.
const QuestionCount = 7

var stepNames = [...]string{
	StepIntroduction: "introduction",
	StepContact:      "contact",
	StepRole:         "role",
	StepExperience:   "experience",
	StepEducation:    "education",
	StepSkills:       "skills",
	StepPhoto:        "photo",
	StepTemplate:     "template",
	StepGenerating:   "generating",
	StepCompleted:    "completed",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return "unknown"
	}
	return stepNames[s]
}

// Progress returns the "question N of 7" counter shown under the input box.
func (s Step) Progress() int {
	if s > QuestionCount {
		return QuestionCount
	}
	return int(s)
}
