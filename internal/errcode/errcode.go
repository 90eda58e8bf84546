package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（例如模板缺失但已回退默认模板）
// - 5xxx：系统错误（需要中断流程）
const (
	OK               = 0
	TemplateMissing  = 4004
	TemplateFellBack = 4005
	SystemError      = 5000
)
