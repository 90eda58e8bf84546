package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"cvforge/internal/cv"
	"cvforge/internal/render"
)

var (
	// ErrUpgradeRequired 表示选择了高级模板但调用方无相应权限。
	// 选择不生效，调用方应引导升级而不是静默失败。
	ErrUpgradeRequired = errors.New("premium template requires upgrade")
	// ErrTemplateNotFound 表示画廊中没有该模板。
	ErrTemplateNotFound = errors.New("template not found")
)

// TemplateState 是画廊模板的获取状态机。
type TemplateState int

const (
	StateNone TemplateState = iota
	StateLoading
	StateReady
	StateFailed
)

// TemplateInfo 是画廊列表项（不含模板源文本）。
type TemplateInfo struct {
	Slug            string `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	IsPremium       bool   `json:"is_premium"`
	PreviewImageURL string `json:"preview_image_url,omitempty"`
}

// Catalog 提供模板列表与完整定义。
type Catalog interface {
	List(ctx context.Context) ([]TemplateInfo, error)
	Fetch(ctx context.Context, slug string) (render.Template, error)
}

// Session 是一次编辑会话的全部可变状态：持有记录、激活模板、
// 最近一次渲染输出。模板列表在会话内只拉取一次。
// 单个编辑器实例独占一个 Session；方法内部用互斥锁串行化。
type Session struct {
	mu      sync.Mutex
	catalog Catalog
	engine  *render.Engine
	rc      *cv.Reconciler
	logger  *slog.Logger

	premium   bool
	templates []TemplateInfo
	fetched   bool

	activeSlug string
	activeTpl  render.Template
	state      TemplateState

	// 最近一次成功渲染的输出。模板获取失败时保持不变
	// （stale-but-visible），避免瞬时网络错误把预览清空。
	lastHTML string
	lastCSS  string
}

// NewSession 以空记录、无激活模板初始化。premium 是调用方权限。
func NewSession(catalog Catalog, engine *render.Engine, premium bool, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		catalog: catalog,
		engine:  engine,
		rc:      cv.NewReconciler(logger),
		logger:  logger,
		premium: premium,
		state:   StateNone,
	}
}

// Templates 返回画廊列表，首次调用时从目录拉取并缓存整个会话。
func (s *Session) Templates(ctx context.Context) ([]TemplateInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.templatesLocked(ctx)
}

func (s *Session) templatesLocked(ctx context.Context) ([]TemplateInfo, error) {
	if s.fetched {
		return s.templates, nil
	}
	list, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	s.templates = list
	s.fetched = true
	return list, nil
}

// ActiveTemplate 返回当前激活的模板 slug（可能为空）。
func (s *Session) ActiveTemplate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSlug
}

// State 返回模板获取状态。
func (s *Session) State() TemplateState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Record 返回持有记录的副本。
func (s *Session) Record() cv.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rc.Held()
}

// Preview 返回最近一次成功渲染的 (HTML, 作用域 CSS)。
func (s *Session) Preview() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHTML, s.lastCSS
}

// SelectTemplate 切换激活模板。高级模板且无权限时不改动任何状态，
// 返回 ErrUpgradeRequired。获取失败进入 StateFailed，但上一次渲染
// 输出保留。成功后同步重渲染。
func (s *Session) SelectTemplate(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.templatesLocked(ctx)
	if err != nil {
		return err
	}
	var info *TemplateInfo
	for i := range list {
		if list[i].Slug == slug {
			info = &list[i]
			break
		}
	}
	if info == nil {
		return ErrTemplateNotFound
	}
	if info.IsPremium && !s.premium {
		return ErrUpgradeRequired
	}

	return s.activateLocked(ctx, slug)
}

// activateLocked 执行 loading → ready|failed 的状态迁移。
// 调用方必须已通过权限门。
func (s *Session) activateLocked(ctx context.Context, slug string) error {
	prevSlug, prevState := s.activeSlug, s.state
	s.activeSlug = slug
	s.state = StateLoading

	tpl, err := s.catalog.Fetch(ctx, slug)
	if err != nil {
		// 回退 slug 与否？激活 id 已切换但内容获取失败：保持
		// failed 态与旧渲染输出，重试由上层触发。
		s.state = StateFailed
		s.logger.Warn("模板获取失败，保留旧预览",
			"template", slug, "prev", prevSlug, "prev_state", int(prevState), "error", err)
		return err
	}

	s.activeTpl = tpl
	s.state = StateReady
	s.renderLocked()
	return nil
}

// ApplyEvent 把一次导航/生成事件交给调和器。事件带出模板指令时
// 在此处执行切换（指令来源于显式画廊点击或信封 template_id，
// 不经过权限门的事件只可能携带免费模板——权限检查仍然执行）。
func (s *Session) ApplyEvent(ctx context.Context, ev cv.Event) (cv.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.rc.Apply(ev)
	if !out.Applied {
		return out, nil
	}

	if out.TemplateID != "" {
		list, err := s.templatesLocked(ctx)
		if err == nil {
			for i := range list {
				if list[i].Slug != out.TemplateID {
					continue
				}
				if list[i].IsPremium && !s.premium {
					return out, ErrUpgradeRequired
				}
				if err := s.activateLocked(ctx, out.TemplateID); err != nil {
					return out, err
				}
				break
			}
		}
	}

	if s.state == StateReady {
		s.renderLocked()
	}
	return out, nil
}

// UpdateRecord 覆盖持有记录（表单直接编辑），并在模板就绪时重渲染。
func (s *Session) UpdateRecord(rec cv.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rc.SetHeld(rec)
	if s.state == StateReady {
		s.renderLocked()
	}
}

func (s *Session) renderLocked() {
	s.lastHTML, s.lastCSS = s.engine.Render(s.rc.Held(), s.activeTpl)
}
