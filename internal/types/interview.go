package types

// 面试流水线的共享状态定义。
//
// 整个面试流程按以下阶段推进：
//
//  1. JD_ANALYZER_AGENT    分析招聘JD，结构化要求的能力/技术/经验
//  2. RESUME_ANALYZER_AGENT 分析候选人简历，提取经历/技能，并与JD做初步匹配
//  3. INTERVIEWER_AGENT    基于JD分析 + 简历分析 + RAG上下文生成定制面试问题
//  4. JUDGE_AGENT          汇总全部信息生成最终评估报告/打分/录用建议
//
// 所有阶段读写同一个 InterviewState 实例，状态由编排器独占传递，
// 单次运行内不存在并发访问。

// 各阶段（Agent）的角色标识，同时作为RAG溯源信息的键。
const (
	AgentJDAnalyzer     = "JD_ANALYZER_AGENT"
	AgentResumeAnalyzer = "RESUME_ANALYZER_AGENT"
	AgentInterviewer    = "INTERVIEWER_AGENT"
	AgentJudge          = "JUDGE_AGENT"
)

// InterviewStatus 面试流程的生命周期状态。
type InterviewStatus string

const (
	StatusInit       InterviewStatus = "INIT"       // 初始状态
	StatusAnalyzing  InterviewStatus = "ANALYZING"  // JD/简历分析中
	StatusInterview  InterviewStatus = "INTERVIEW"  // 问答进行中
	StatusEvaluating InterviewStatus = "EVALUATING" // 最终评估生成中
	StatusDone       InterviewStatus = "DONE"       // 全流程完成
)

// DefaultJobRole 未能识别职位方向时使用的兜底标签。
const DefaultJobRole = "general"

// QATurn 表示一轮面试问答。
// FollowUp 的父问题通过 ParentIndex 指向 QAHistory 中更早的下标，
// 由此在扁平列表上构成一棵追问树。
type QATurn struct {
	Interviewer string   `json:"interviewer"`            // 提问方角色标识（AgentInterviewer等）
	Question    string   `json:"question"`               // 问题内容
	Answer      string   `json:"answer"`                 // 候选人答案，生成时为空，后续由调用方填充
	Category    string   `json:"category,omitempty"`     // 问题类别，例如"기술"、"협업"
	Score       *float64 `json:"score,omitempty"`        // 该轮得分（可选）
	Notes       string   `json:"notes,omitempty"`        // 内部备注（可选）
	IsFollowUp  bool     `json:"is_followup,omitempty"`  // 是否为追问
	ParentIndex *int     `json:"parent_index,omitempty"` // 追问的父问题下标
}

// ScoreDetail 细分能力项的得分明细。
type ScoreDetail struct {
	Score float64 `json:"score"` // 得分
	Max   float64 `json:"max"`   // 满分
	Ratio float64 `json:"ratio"` // 得分/满分
}

// CareerTransition 跨职位转型分析结果。
// 当候选人当前职位背景与目标职位不一致时，由评估阶段额外生成。
type CareerTransition struct {
	Likelihood        string   `json:"likelihood"`         // 转型可能性标签（높음/보통/낮음）
	LikelihoodScore   float64  `json:"likelihood_score"`   // 可能性量化分数
	CurrentBackground string   `json:"current_background"` // 候选人当前职位背景描述
	TargetRole        string   `json:"target_role"`        // 目标职位描述
	Gaps              []string `json:"gaps,omitempty"`     // 需要补齐的差距
	Suggestions       []string `json:"suggestions,omitempty"`
}

// EvaluationResult 最终评估报告。
// RawText 保留LLM原文，解析失败时作为兜底展示，也便于审计。
type EvaluationResult struct {
	Summary        string                 `json:"summary"`
	Strengths      []string               `json:"strengths"`
	Weaknesses     []string               `json:"weaknesses"`
	Recommendation string                 `json:"recommendation"` // 例如 "Strong Hire / Hire / No Hire"
	Scores         map[string]float64     `json:"scores"`         // 能力项 -> 得分
	DetailedScores map[string]ScoreDetail `json:"detailed_scores,omitempty"`
	Transition     *CareerTransition      `json:"career_transition,omitempty"`
	RawText        string                 `json:"raw_text"`
}

// WebSearchInfo 某一阶段的网络检索使用情况，随状态一起持久化，
// 供审计视图展示"为什么会生成这个问题/分数"。
type WebSearchInfo struct {
	Used         bool        `json:"used"`
	Query        string      `json:"query,omitempty"`
	ResultsCount int         `json:"results_count"`
	Results      []WebResult `json:"results,omitempty"`
	QualityScore float64     `json:"quality_score"`
	Issues       []string    `json:"issues,omitempty"`
}

// WebResult 单条网络检索结果。
type WebResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Document 检索层返回的参考文档片段。
// Type 为 "knowledge" 表示来自向量索引，"web_search" 表示来自网络兜底检索。
type Document struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`          // 文件路径或URL
	Type    string  `json:"type"`            // knowledge / web_search
	Role    string  `json:"role"`            // 职位方向标签
	Score   float64 `json:"score,omitempty"` // 重排后的相关性分数
}

// DocTypeKnowledge / DocTypeWebSearch 是 Document.Type 的取值。
const (
	DocTypeKnowledge = "knowledge"
	DocTypeWebSearch = "web_search"
)

// InterviewState 面试流水线全局状态。
// 一次运行对应一个实例，由编排器在各阶段间顺序传递并原地更新。
type InterviewState struct {
	// ===== 基本信息 =====
	JobTitle      string `json:"job_title"`      // 招聘职位名，例如"백엔드 개발자"
	CandidateName string `json:"candidate_name"` // 候选人姓名
	JDText        string `json:"jd_text"`        // JD原文
	ResumeText    string `json:"resume_text"`    // 简历原文
	JobRole       string `json:"job_role"`       // 职位方向标签，例如 "backend"、"pm"、"general"

	// ===== 分析结果（各自由所属阶段写入一次）=====
	JDSummary        string   `json:"jd_summary"`
	JDRequirements   []string `json:"jd_requirements"`
	CandidateSummary string   `json:"candidate_summary"`
	CandidateSkills  []string `json:"candidate_skills"`

	// ===== 面试进度 =====
	QAHistory            []QATurn        `json:"qa_history"`
	CurrentQuestionIndex int             `json:"current_question_index"` // 已生成/已进行的问题数
	TotalQuestions       int             `json:"total_questions"`        // 计划问题总数
	Status               InterviewStatus `json:"status"`
	PrevAgent            string          `json:"prev_agent"` // 最近执行完成的阶段角色

	// ===== RAG溯源 =====
	RAGContexts   map[string]string        `json:"rag_contexts"`    // 阶段角色 -> 使用的上下文文本
	RAGDocs       map[string][]Document    `json:"rag_docs"`        // 阶段角色 -> 检索到的原始文档
	WebSearchInfo map[string]WebSearchInfo `json:"web_search_info"` // 阶段角色 -> 网络检索使用情况

	// ===== 最终评估 =====
	Evaluation *EvaluationResult `json:"evaluation"`
}

// NewInterviewState 创建流水线的初始状态。
// totalQuestions 小于1时修正为1；jobRole 为空时落到 general。
func NewInterviewState(jobTitle, candidateName, jdText, resumeText string, totalQuestions int, jobRole string) *InterviewState {
	if totalQuestions < 1 {
		totalQuestions = 1
	}
	if jobRole == "" {
		jobRole = DefaultJobRole
	}
	return &InterviewState{
		JobTitle:       jobTitle,
		CandidateName:  candidateName,
		JDText:         jdText,
		ResumeText:     resumeText,
		JobRole:        jobRole,
		JDRequirements: []string{},
		CandidateSkills: []string{},
		QAHistory:      []QATurn{},
		TotalQuestions: totalQuestions,
		Status:         StatusInit,
		RAGContexts:    map[string]string{},
		RAGDocs:        map[string][]Document{},
		WebSearchInfo:  map[string]WebSearchInfo{},
	}
}

// EnsureProvenanceMaps 保证溯源map非nil。
// 状态经过JSON反序列化（重新评估路径）后map可能丢失。
func (s *InterviewState) EnsureProvenanceMaps() {
	if s.RAGContexts == nil {
		s.RAGContexts = map[string]string{}
	}
	if s.RAGDocs == nil {
		s.RAGDocs = map[string][]Document{}
	}
	if s.WebSearchInfo == nil {
		s.WebSearchInfo = map[string]WebSearchInfo{}
	}
}

// AppendFollowUp 在问答列表末尾追加一条追问。
// parentIndex 必须指向已存在的更早问题，否则返回false且不做任何修改。
// 追问是附加性的，允许使问题总数超出最初计划的 TotalQuestions。
func (s *InterviewState) AppendFollowUp(parentIndex int, question, category string) bool {
	if parentIndex < 0 || parentIndex >= len(s.QAHistory) {
		return false
	}
	idx := parentIndex
	s.QAHistory = append(s.QAHistory, QATurn{
		Interviewer: AgentInterviewer,
		Question:    question,
		Category:    category,
		IsFollowUp:  true,
		ParentIndex: &idx,
	})
	s.CurrentQuestionIndex = len(s.QAHistory)
	return true
}
