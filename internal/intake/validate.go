package intake

import (
	"errors"
	"regexp"
	"strings"
)

// StepCount 表单总步数
const StepCount = 6

var (
	ErrUnknownField   = errors.New("unknown intake field")
	ErrFieldType      = errors.New("intake field type mismatch")
	ErrNotMultiSelect = errors.New("intake field is not multi-select")
	ErrInvalidName    = errors.New("invalid full name")
	ErrInvalidEmail   = errors.New("invalid email")
	ErrInvalidPhone   = errors.New("invalid phone number")
)

// EmailPattern 与前端一致的实用邮箱格式
var EmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// IsStepValid 检查单步是否填写完整
func (r Record) IsStepValid(step int) bool {
	switch step {
	case 1:
		return r.RecipientRelationship != "" &&
			!blank(r.RecipientName) &&
			r.SongPerspective != "" &&
			(r.RecipientRelationship != OptionOther || !blank(r.RecipientCustomRelation)) &&
			(r.SongPerspective != OptionOther || !blank(r.SongPerspectiveCustom))
	case 2:
		return r.PrimaryLanguage != "" &&
			r.LanguageStyle != "" &&
			(r.LanguageStyle == LanguageStylePrimary || r.SecondaryLanguage != "")
	case 3:
		return len(r.MusicStyle) > 0 &&
			len(r.EmotionalVibe) > 0 &&
			r.VoicePreference != ""
	case 4:
		return !blank(r.RecipientQualities) &&
			!blank(r.SharedMemories) &&
			r.FaithExpressionLevel != ""
	case 5:
		return !blank(r.CoreMessage)
	case 6:
		return !blank(r.FullName) &&
			!blank(r.Email) &&
			!blank(r.PhoneNumber)
	default:
		return false
	}
}

// IsComplete 六步全部有效
func (r Record) IsComplete() bool {
	return r.FirstInvalidStep() == 0
}

// FirstInvalidStep 第一个未完成的步骤，全部完成返回 0
func (r Record) FirstInvalidStep() int {
	for step := 1; step <= StepCount; step++ {
		if !r.IsStepValid(step) {
			return step
		}
	}
	return 0
}

// FirstIncompleteStep 第一个未完成的步骤，全部完成时返回 1（用于跳转）
func (r Record) FirstIncompleteStep() int {
	if step := r.FirstInvalidStep(); step > 0 {
		return step
	}
	return 1
}

// IsCompleted 是否已执行过完成动作
func (r Record) IsCompleted() bool {
	return r.IntakeCompletedAt != ""
}

// ValidateContact 结账前联系方式校验
func (r Record) ValidateContact() error {
	name := strings.TrimSpace(r.FullName)
	if len([]rune(name)) < 2 {
		return ErrInvalidName
	}
	if !EmailPattern.MatchString(strings.TrimSpace(r.Email)) {
		return ErrInvalidEmail
	}
	if r.CustomerPhoneE164 != "" {
		return nil
	}
	if blank(r.PhoneNumber) || !IsValidPhone(r.PhoneNumber, "") {
		return ErrInvalidPhone
	}
	return nil
}
