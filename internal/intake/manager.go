package intake

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sessionIDKey     = "sessionId"
	intakeDataPrefix = "intakeData_"
)

// IntakeDataKey 会话对应的 intake 存储 key
func IntakeDataKey(sessionID string) string {
	return intakeDataPrefix + sessionID
}

// ==================== Manager ====================

// Manager 六步表单状态管理器
// 内存中的 record 是当前页面的权威数据，每次修改后整体写入 SessionStore；
// 写入失败只记录日志，不影响内存状态。
type Manager struct {
	mu        sync.Mutex
	store     SessionStore
	logger    *zap.Logger
	now       func() time.Time
	sessionID string
	record    Record
	loaded    bool
	lastErr   error
}

// Option 管理器选项
type Option func(*Manager)

// WithLogger 注入日志
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithSessionID 指定会话 ID（不从存储读取 / 生成）
func WithSessionID(id string) Option {
	return func(m *Manager) {
		m.sessionID = id
	}
}

// NewManager 创建管理器，调用 Load 之前 record 为默认值
func NewManager(store SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
		record: Defaults(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load 读取会话 ID 与已保存的表单
func (m *Manager) Load() {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.loaded = true }()

	if m.sessionID == "" {
		m.sessionID = m.loadOrCreateSessionID()
	}

	raw, ok, err := m.store.Get(IntakeDataKey(m.sessionID))
	if err != nil {
		m.logger.Error("[Intake] 读取 intake 数据失败", zap.String("session_id", m.sessionID), zap.Error(err))
		m.lastErr = err
		return
	}
	if !ok {
		return
	}

	rec, err := Decode(raw)
	if err != nil {
		m.logger.Error("[Intake] 解析 intake 数据失败，使用默认值", zap.String("session_id", m.sessionID), zap.Error(err))
		m.lastErr = err
		return
	}
	m.record = rec
}

func (m *Manager) loadOrCreateSessionID() string {
	if b, ok, err := m.store.Get(sessionIDKey); err == nil && ok && len(b) > 0 {
		return string(b)
	} else if err != nil {
		m.logger.Warn("[Intake] 读取会话 ID 失败，重新生成", zap.Error(err))
	}

	id := uuid.New().String()
	if err := m.store.Set(sessionIDKey, []byte(id)); err != nil {
		m.logger.Error("[Intake] 保存会话 ID 失败", zap.Error(err))
		m.lastErr = err
	}
	return id
}

// IsLoaded 是否已加载
func (m *Manager) IsLoaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// SessionID 当前会话 ID
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Record 当前记录副本
func (m *Manager) Record() Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record.Clone()
}

// LastPersistError 最近一次存储错误
func (m *Manager) LastPersistError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// ==================== 修改 ====================

// Update 替换单个字段，写入时不做内容校验
func (m *Manager) Update(field string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.record.Clone()
	if err := next.set(field, value); err != nil {
		return err
	}
	m.record = next
	m.persist()
	return nil
}

// UpdateMultiSelect 切换集合字段中的选项
func (m *Manager) UpdateMultiSelect(field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.record.Clone()
	if err := next.toggle(field, value); err != nil {
		return err
	}
	m.record = next
	m.persist()
	return nil
}

// SetPhone 保存原始电话并尝试标准化
// 无法解析时仍保存原始值，派生字段清空，并返回 ErrInvalidPhone
func (m *Manager) SetPhone(raw, defaultRegion string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.record.Clone()
	next.PhoneNumber = raw
	next.CustomerPhoneE164, next.CustomerPhoneDisplay, next.CustomerPhoneCountry = "", "", ""

	p, perr := NormalizePhone(raw, defaultRegion)
	if perr == nil {
		next.CustomerPhoneE164 = p.E164
		next.CustomerPhoneDisplay = p.Display
		next.CustomerPhoneCountry = p.Country
	}

	m.record = next
	m.persist()
	return perr
}

// CompleteIntake 标记完成时间并返回最终记录；重复调用会覆盖时间
func (m *Manager) CompleteIntake() Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.record.Clone()
	next.IntakeCompletedAt = m.now().UTC().Format(time.RFC3339)
	m.record = next
	m.persist()
	return next.Clone()
}

// Clear 清空本会话保存的表单（下单成功后调用）
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record = Defaults()
	if err := m.store.Delete(IntakeDataKey(m.sessionID)); err != nil {
		m.logger.Error("[Intake] 清理 intake 数据失败", zap.String("session_id", m.sessionID), zap.Error(err))
		m.lastErr = err
	}
}

// persist 调用方需持有锁
func (m *Manager) persist() {
	raw, err := m.record.Encode()
	if err == nil {
		err = m.store.Set(IntakeDataKey(m.sessionID), raw)
	}
	if err != nil {
		m.logger.Error("[Intake] 保存 intake 数据失败", zap.String("session_id", m.sessionID), zap.Error(err))
		m.lastErr = err
		return
	}
	m.lastErr = nil
}

// ==================== 查询 ====================

// IsStepValid 单步是否有效
func (m *Manager) IsStepValid(step int) bool {
	return m.Record().IsStepValid(step)
}

// IsComplete 六步是否全部有效
func (m *Manager) IsComplete() bool {
	return m.Record().IsComplete()
}

// FirstIncompleteStep 第一个未完成步骤，全部完成返回 1
func (m *Manager) FirstIncompleteStep() int {
	return m.Record().FirstIncompleteStep()
}

// CheckoutGate 是否允许进入结账；不允许时返回应跳转的步骤
func (m *Manager) CheckoutGate() (bool, int) {
	rec := m.Record()
	if rec.IsCompleted() && rec.IsComplete() {
		return true, 0
	}
	return false, rec.FirstIncompleteStep()
}

// ValidateContact 结账前联系方式校验
func (m *Manager) ValidateContact() error {
	return m.Record().ValidateContact()
}
