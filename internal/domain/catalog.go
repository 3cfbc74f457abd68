package domain

// Subjects offered on the platform.
var Subjects = []string{"Maths", "Science", "Social Science", "English", "Hindi"}

// Classes offered on the platform.
var Classes = []int{8, 9}

func IsValidSubject(subject string) bool {
	for _, s := range Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

func IsValidClass(class int) bool {
	for _, c := range Classes {
		if c == class {
			return true
		}
	}
	return false
}

func IsValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

func IsValidQuestionType(t QuestionType) bool {
	return t == QuestionMCQ || t == QuestionShortAnswer
}
