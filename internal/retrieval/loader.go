package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"

	"interview-agent-go/internal/logger"
	"interview-agent-go/internal/types"
)

const (
	// 知识文档的切分参数：单块最大长度与相邻块重叠长度（按rune计）
	chunkSize    = 800
	chunkOverlap = 200

	// 单次嵌入请求的最大文本数
	embedBatchSize = 10
)

// knowledgePointNamespace 用于生成确定性点ID的命名空间。
// 同一文件的同一分块始终得到同一个ID，重复加载幂等。
var knowledgePointNamespace = uuid.MustParse("8f4e2a17-6b3d-4c59-9e12-d07a5b8c3f41")

// KnowledgeLoader 从本地目录加载面试知识库并写入向量索引。
//
// 目录结构约定：knowledge_dir下的一级子目录名即职位方向标签，
// 子目录内的 .txt/.md 文件为该方向的知识文档；
// 直接放在根目录下的文件归入 general。
type KnowledgeLoader struct {
	dir      string
	index    KnowledgeIndex
	embedder embedding.Embedder
}

// NewKnowledgeLoader 创建知识库加载器
func NewKnowledgeLoader(dir string, index KnowledgeIndex, embedder embedding.Embedder) *KnowledgeLoader {
	return &KnowledgeLoader{
		dir:      dir,
		index:    index,
		embedder: embedder,
	}
}

// AvailableRoles 返回知识库目录下的职位方向标签（一级子目录名）。
// 目录不存在时返回空列表，不报错。
func (l *KnowledgeLoader) AvailableRoles() []string {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil
	}

	var roles []string
	for _, entry := range entries {
		if entry.IsDir() {
			roles = append(roles, entry.Name())
		}
	}
	return roles
}

// Load 扫描知识库目录，切分文档并写入向量索引。
// 返回写入的分块总数。目录不存在视为空知识库，返回0且不报错。
func (l *KnowledgeLoader) Load(ctx context.Context) (int, error) {
	if _, err := os.Stat(l.dir); os.IsNotExist(err) {
		logger.Warn().Str("dir", l.dir).Msg("知识库目录不存在，跳过加载")
		return 0, nil
	}

	var points []KnowledgePoint

	err := filepath.WalkDir(l.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("读取知识文档 %s 失败: %w", path, err)
		}

		role := l.roleOf(path)
		for i, chunk := range splitText(string(data), chunkSize, chunkOverlap) {
			idSource := fmt.Sprintf("file:%s_chunk:%d", path, i)
			points = append(points, KnowledgePoint{
				ID:      uuid.NewSHA1(knowledgePointNamespace, []byte(idSource)).String(),
				Content: chunk,
				Source:  path,
				Role:    role,
			})
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("扫描知识库目录失败: %w", err)
	}

	if len(points) == 0 {
		logger.Info().Str("dir", l.dir).Msg("知识库目录中没有可加载的文档")
		return 0, nil
	}

	// 分批嵌入并写入
	for start := 0; start < len(points); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(points) {
			end = len(points)
		}
		batch := points[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.Content
		}

		vectors, err := l.embedder.EmbedStrings(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("生成知识文档向量失败: %w", err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("向量数量(%d)与文本数量(%d)不匹配", len(vectors), len(batch))
		}

		for i := range batch {
			batch[i].Vector = vectors[i]
		}

		if err := l.index.UpsertDocuments(ctx, batch); err != nil {
			return 0, fmt.Errorf("写入向量索引失败: %w", err)
		}
	}

	logger.Info().
		Str("dir", l.dir).
		Int("chunks", len(points)).
		Msg("知识库加载完成")
	return len(points), nil
}

// roleOf 根据文件相对于知识库根目录的路径确定职位方向标签。
// 根目录直属文件归入general。
func (l *KnowledgeLoader) roleOf(path string) string {
	rel, err := filepath.Rel(l.dir, path)
	if err != nil {
		return types.DefaultJobRole
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return types.DefaultJobRole
	}
	return parts[0]
}

// splitText 按固定长度与重叠切分文本，长度按rune计。
// 优先在换行处断开，避免把段落切在句子中间。
func splitText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunk := strings.TrimSpace(string(runes[start:]))
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		// 向前回找最近的换行符作为断点
		cut := end
		for i := end; i > start+size/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}

		chunk := strings.TrimSpace(string(runes[start:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}

	return chunks
}
