package agent

import (
	"strconv"
	"strings"

	"interview-agent-go/internal/types"
)

// 本文件实现所有Agent共享的分段解析语法。
// 模型被指示用方括号段落头（如 [요약]）输出结构化文本，
// 解析器逐行扫描，遇到已知段落头切换当前段落，空行与首个段落头之前的行被忽略。
// 解析失败从不报错：调用方负责在摘要段为空时把整个原文当作摘要使用。

// sections 保存按段落头归类后的非空行。
type sections struct {
	raw   string
	lines map[string][]string
}

// parseSections 按给定的段落头集合切分模型输出。
// 段落头按前缀匹配：传入 "[요구 역량" 可以同时命中 "[요구 역량/기술/경험]" 等变体。
func parseSections(raw string, headers ...string) *sections {
	s := &sections{
		raw:   raw,
		lines: make(map[string][]string, len(headers)),
	}

	current := ""
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		matched := false
		for _, h := range headers {
			if strings.HasPrefix(line, h) {
				current = h
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		if current != "" {
			s.lines[current] = append(s.lines[current], line)
		}
	}

	return s
}

// text 返回某段落的文本内容（行间以换行连接）。
func (s *sections) text(header string) string {
	return strings.Join(s.lines[header], "\n")
}

// textOr 返回某段落的文本内容；段落为空时返回fallback。
// 对应解析失败策略：无任何已知段落头时整个原文回退为摘要。
func (s *sections) textOr(header, fallback string) string {
	if t := s.text(header); t != "" {
		return t
	}
	return fallback
}

// joined 返回某段落的文本内容，行间以sep连接。
func (s *sections) joined(header, sep string) string {
	return strings.Join(s.lines[header], sep)
}

// bullets 返回某段落中以 "-" 或 "•" 开头的列表项（去除标记后的文本）。
func (s *sections) bullets(header string) []string {
	var items []string
	for _, line := range s.lines[header] {
		if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") {
			item := strings.TrimSpace(strings.TrimLeft(line, "-• "))
			if item != "" {
				items = append(items, item)
			}
		}
	}
	return items
}

// scores 解析 "- label: n/m" 形状的分数行，返回扁平分数表。
// 不符合形状的行被跳过；"/m" 部分可缺省。
func (s *sections) scores(header string) map[string]float64 {
	result := make(map[string]float64)
	for _, line := range s.lines[header] {
		label, score, _, ok := parseScoreLine(line)
		if !ok {
			continue
		}
		result[label] = score
	}
	return result
}

// detailedScores 解析 "- label: n/m" 分数行并保留满分与比例。
func (s *sections) detailedScores(header string) map[string]types.ScoreDetail {
	result := make(map[string]types.ScoreDetail)
	for _, line := range s.lines[header] {
		label, score, max, ok := parseScoreLine(line)
		if !ok {
			continue
		}
		detail := types.ScoreDetail{Score: score, Max: max}
		if max > 0 {
			detail.Ratio = score / max
		}
		result[label] = detail
	}
	return result
}

// float 解析段落首行的浮点数，解析失败返回def。
func (s *sections) float(header string, def float64) float64 {
	for _, line := range s.lines[header] {
		if v, err := strconv.ParseFloat(line, 64); err == nil {
			return v
		}
	}
	return def
}

// yesNo 判断段落内容是否表示肯定（예/yes/필요）。
func (s *sections) yesNo(header string) bool {
	for _, line := range s.lines[header] {
		lower := strings.ToLower(line)
		if strings.Contains(line, "예") || strings.Contains(lower, "yes") || strings.Contains(line, "필요") {
			return true
		}
	}
	return false
}

// firstLine 返回段落的第一行（忽略以括号开头的占位说明行）。
func (s *sections) firstLine(header string) string {
	for _, line := range s.lines[header] {
		if strings.HasPrefix(line, "(") {
			continue
		}
		return line
	}
	return ""
}

// parseScoreLine 解析单条分数行："- 커뮤니케이션: 4/5" → ("커뮤니케이션", 4, 5, true)。
// 满分缺省时max为0。行首的列表标记可有可无。
func parseScoreLine(line string) (label string, score, max float64, ok bool) {
	line = strings.TrimSpace(strings.TrimLeft(line, "-• "))
	left, right, found := strings.Cut(line, ":")
	if !found {
		return "", 0, 0, false
	}

	label = strings.TrimSpace(left)
	if label == "" {
		return "", 0, 0, false
	}

	scorePart, maxPart, hasMax := strings.Cut(strings.TrimSpace(right), "/")
	score, err := strconv.ParseFloat(strings.TrimSpace(scorePart), 64)
	if err != nil {
		return "", 0, 0, false
	}

	if hasMax {
		// 满分后可能跟注释，截取前导数字部分
		maxPart = strings.TrimSpace(maxPart)
		if idx := strings.IndexFunc(maxPart, func(r rune) bool {
			return (r < '0' || r > '9') && r != '.'
		}); idx >= 0 {
			maxPart = maxPart[:idx]
		}
		if m, err := strconv.ParseFloat(maxPart, 64); err == nil {
			max = m
		}
	}

	return label, score, max, true
}

// questionItem 从编号问题行中解析出的一个问题。
type questionItem struct {
	Category string
	Text     string
}

// parseNumberedQuestions 解析 "[질문 리스트]" 段落下的编号问题行。
// 行形状："N. (카테고리: X) 질문 내용..."，类别前缀可缺省。
// 段落头之前的行被忽略；非数字开头的行被跳过。
func parseNumberedQuestions(raw string, header string) []questionItem {
	var items []questionItem

	inList := false
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, header) {
			inList = true
			continue
		}
		if !inList {
			continue
		}

		first := []rune(line)[0]
		if first < '0' || first > '9' {
			continue
		}

		// 去掉编号前缀
		_, rest, found := strings.Cut(line, ".")
		if !found {
			continue
		}
		rest = strings.TrimSpace(rest)

		item := questionItem{Text: rest}

		// 解析 "(카테고리: 기술)" 前缀
		if strings.HasPrefix(rest, "(") && strings.Contains(rest, "카테고리") {
			catPart, qPart, found := strings.Cut(rest, ")")
			if found {
				if _, cat, hasCat := strings.Cut(catPart, "카테고리:"); hasCat {
					item.Category = strings.TrimSpace(cat)
				}
				item.Text = strings.TrimSpace(qPart)
			}
		}

		if item.Text != "" {
			items = append(items, item)
		}
	}

	return items
}
