package constants

import "time"

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// InterviewModulePrefix 面试模块
	InterviewModulePrefix = "interview"

	// EntitySession 实时面试会话实体
	EntitySession = "session"

	// KeyLiveSession 实时面试会话状态 (STRING, JSON序列化的InterviewState)
	// 格式: app:interview:session:{sessionID}
	KeyLiveSession = AppPrefix + ":" + InterviewModulePrefix + ":" + EntitySession + ":%s"

	// LiveSessionTTL 实时面试会话的过期时间。
	// 会话在Redis中显式过期，替代原型中无限增长的进程内map。
	LiveSessionTTL = 2 * time.Hour
)
