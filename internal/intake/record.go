package intake

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// CurrentSchemaVersion 当前 intake 存储结构版本
// v1: 原始浏览器结构（无 schemaVersion 字段）
// v2: 增加 schemaVersion，电话拆分为 E.164 / 展示 / 国家码
const CurrentSchemaVersion = 2

// ==================== 选项常量 ====================

const (
	OptionOther          = "other"       // 关系 / 视角选择 "other" 时需要填写自定义文本
	LanguageStylePrimary = "100-primary" // 纯主语言，不需要第二语言
)

// ==================== Record ====================

// Record 一次会话的歌曲定制信息（六步表单）
type Record struct {
	SchemaVersion int `json:"schemaVersion"`

	// Step 1: 收礼人
	RecipientRelationship      string `json:"recipientRelationship"`
	RecipientCustomRelation    string `json:"recipientCustomRelation"`
	RecipientName              string `json:"recipientName"`
	RecipientNamePronunciation string `json:"recipientNamePronunciation"`
	SongPerspective            string `json:"songPerspective"`
	SongPerspectiveCustom      string `json:"songPerspectiveCustom"`

	// Step 2: 语言
	PrimaryLanguage         string `json:"primaryLanguage"`
	LanguageStyle           string `json:"languageStyle"`
	SecondaryLanguage       string `json:"secondaryLanguage"`
	LanguageSpecificPhrases string `json:"languageSpecificPhrases"`

	// Step 3: 风格
	MusicStyle            []string `json:"musicStyle"`
	EmotionalVibe         []string `json:"emotionalVibe"`
	VoicePreference       string   `json:"voicePreference"`
	MusicInspirationNotes string   `json:"musicInspirationNotes"`

	// Step 4: 个人内容
	RecipientQualities   string `json:"recipientQualities"`
	SharedMemories       string `json:"sharedMemories"`
	FaithExpressionLevel string `json:"faithExpressionLevel"`

	// Step 5: 核心信息
	CoreMessage            string `json:"coreMessage"`
	AIRephrasingPermission bool   `json:"aiRephrasingPermission"`
	IntakeCompletedAt      string `json:"intakeCompletedAt"`

	// 结账选项
	ExpressDelivery bool `json:"expressDelivery"`

	// Step 6: 联系方式
	FullName             string `json:"fullName"`
	Email                string `json:"email"`
	PhoneNumber          string `json:"phoneNumber"`
	CustomerPhoneE164    string `json:"customer_phone_e164"`
	CustomerPhoneDisplay string `json:"customer_phone_display"`
	CustomerPhoneCountry string `json:"customer_phone_country"`

	// 旧版本字段，仅为兼容老会话保留
	SongType        string `json:"songType,omitempty"`
	Recipient       string `json:"recipient,omitempty"`
	Occasion        string `json:"occasion,omitempty"`
	PersonalDetails string `json:"personalDetails,omitempty"`
	OldMusicStyle   string `json:"oldMusicStyle,omitempty"`
}

// Defaults 返回首次加载时的默认记录
func Defaults() Record {
	return Record{
		SchemaVersion: CurrentSchemaVersion,
		MusicStyle:    []string{},
		EmotionalVibe: []string{},
	}
}

// Clone 深拷贝（切片字段独立）
func (r Record) Clone() Record {
	out := r
	out.MusicStyle = append([]string{}, r.MusicStyle...)
	out.EmotionalVibe = append([]string{}, r.EmotionalVibe...)
	return out
}

// Encode 序列化为存储格式
func (r Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// ==================== 解码与迁移 ====================

// Decode 从存储数据恢复记录：默认值 + 存储值覆盖 + 版本迁移
func Decode(raw []byte) (Record, error) {
	rec := Defaults()
	rec.SchemaVersion = 0
	if len(raw) == 0 {
		return Defaults(), nil
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Defaults(), fmt.Errorf("解析 intake 数据失败: %w", err)
	}
	return Migrate(rec), nil
}

// migration 单步迁移：from 版本 → from+1
type migration func(Record) Record

var migrations = map[int]migration{
	0: migrateV0, // 无版本号的原始数据与 v1 同构
	1: migrateV1,
}

// Migrate 把任意旧版本记录迁移到 CurrentSchemaVersion
func Migrate(rec Record) Record {
	if rec.SchemaVersion <= 0 {
		rec.SchemaVersion = 0
	}
	for rec.SchemaVersion < CurrentSchemaVersion {
		step, ok := migrations[rec.SchemaVersion]
		if !ok {
			break
		}
		rec = step(rec)
	}
	if rec.MusicStyle == nil {
		rec.MusicStyle = []string{}
	}
	if rec.EmotionalVibe == nil {
		rec.EmotionalVibe = []string{}
	}
	return rec
}

func migrateV0(rec Record) Record {
	// 早期版本音乐风格是单选字符串
	if len(rec.MusicStyle) == 0 && strings.TrimSpace(rec.OldMusicStyle) != "" {
		rec.MusicStyle = []string{strings.TrimSpace(rec.OldMusicStyle)}
	}
	rec.SchemaVersion = 1
	return rec
}

func migrateV1(rec Record) Record {
	// v1 只有原始电话号码
	if rec.CustomerPhoneE164 == "" && strings.TrimSpace(rec.PhoneNumber) != "" {
		if p, err := NormalizePhone(rec.PhoneNumber, ""); err == nil {
			rec.CustomerPhoneE164 = p.E164
			rec.CustomerPhoneDisplay = p.Display
			rec.CustomerPhoneCountry = p.Country
		}
	}
	rec.SchemaVersion = 2
	return rec
}

// ==================== 字段注册表 ====================

// fieldIndex json 字段名 → 结构体字段下标
var fieldIndex = buildFieldIndex()

func buildFieldIndex() map[string]int {
	t := reflect.TypeOf(Record{})
	idx := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		if name == "" || name == "-" || name == "schemaVersion" {
			continue
		}
		idx[name] = i
	}
	return idx
}

// multiSelectFields 集合型字段
var multiSelectFields = map[string]bool{
	"musicStyle":    true,
	"emotionalVibe": true,
}

// IsKnownField 是否为 Record 的合法字段
func IsKnownField(field string) bool {
	_, ok := fieldIndex[field]
	return ok
}

// set 按字段名写入值，类型必须与字段一致
func (r *Record) set(field string, value interface{}) error {
	i, ok := fieldIndex[field]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	fv := reflect.ValueOf(r).Elem().Field(i)
	v := reflect.ValueOf(value)
	if !v.IsValid() || !v.Type().AssignableTo(fv.Type()) {
		return fmt.Errorf("%w: %s 需要 %s", ErrFieldType, field, fv.Type())
	}

	if s, ok := value.([]string); ok {
		fv.Set(reflect.ValueOf(append([]string{}, s...)))
		return nil
	}
	fv.Set(v)
	return nil
}

// toggle 切换集合字段中 value 的存在
func (r *Record) toggle(field, value string) error {
	if !multiSelectFields[field] {
		if !IsKnownField(field) {
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		return fmt.Errorf("%w: %s", ErrNotMultiSelect, field)
	}

	target := &r.MusicStyle
	if field == "emotionalVibe" {
		target = &r.EmotionalVibe
	}

	next := make([]string, 0, len(*target)+1)
	found := false
	for _, item := range *target {
		if item == value {
			found = true
			continue
		}
		next = append(next, item)
	}
	if !found {
		next = append(next, value)
	}
	*target = next
	return nil
}
