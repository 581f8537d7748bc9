package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSplitTextShort 验证短文本不切分
func TestSplitTextShort(t *testing.T) {
	chunks := splitText("짧은 문서입니다.", 800, 200)
	assert.Equal(t, []string{"짧은 문서입니다."}, chunks)

	assert.Nil(t, splitText("", 800, 200))
	assert.Nil(t, splitText("   \n  ", 800, 200))
}

// TestSplitTextChunking 验证长文本按大小切分且相邻块有重叠
func TestSplitTextChunking(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("이것은 지식 문서의 한 줄입니다.\n")
	}
	text := b.String()

	chunks := splitText(text, 200, 50)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 200)
		assert.NotEmpty(t, chunk)
	}

	// 重叠：后块开头应出现在前块结尾附近
	first := []rune(chunks[0])
	tail := string(first[len(first)-30:])
	assert.Contains(t, chunks[1], strings.TrimSpace(tail))
}

// TestSplitTextBreaksAtNewline 验证优先在换行处断开
func TestSplitTextBreaksAtNewline(t *testing.T) {
	line := strings.Repeat("가", 90)
	text := line + "\n" + line + "\n" + line

	chunks := splitText(text, 100, 10)
	require.Greater(t, len(chunks), 1)
	// 首块在换行处断开，恰好是一整行
	assert.Equal(t, line, chunks[0])
}

// TestLoaderRoleOf 验证职位方向标签按一级子目录确定
func TestLoaderRoleOf(t *testing.T) {
	l := NewKnowledgeLoader("/data/kb", nil, nil)

	assert.Equal(t, "backend", l.roleOf("/data/kb/backend/guide.md"))
	assert.Equal(t, "frontend", l.roleOf("/data/kb/frontend/sub/notes.txt"))
	// 根目录直属文件归入general
	assert.Equal(t, "general", l.roleOf("/data/kb/common.md"))
}

// TestLoaderLoad 验证目录扫描、切分与写入
func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "backend"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backend", "guide.md"),
		[]byte("백엔드 면접 평가 기준 문서입니다."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "common.txt"),
		[]byte("모든 직군에 공통으로 적용되는 기준입니다."), 0644))
	// 非知识文档扩展名被跳过
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.json"), []byte("{}"), 0644))

	index := &fakeIndex{}
	l := NewKnowledgeLoader(dir, index, &fakeEmbedder{})

	count, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.Len(t, index.upserted, 2)
	roles := map[string]bool{}
	for _, p := range index.upserted {
		roles[p.Role] = true
		assert.NotEmpty(t, p.ID)
		assert.NotEmpty(t, p.Vector)
	}
	assert.True(t, roles["backend"])
	assert.True(t, roles["general"])

	// 重复加载生成相同的确定性ID
	firstIDs := []string{index.upserted[0].ID, index.upserted[1].ID}
	index.upserted = nil
	_, err = l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, index.upserted, 2)
	assert.ElementsMatch(t, firstIDs, []string{index.upserted[0].ID, index.upserted[1].ID})
}

// TestLoaderMissingDir 验证目录不存在时按空知识库处理
func TestLoaderMissingDir(t *testing.T) {
	l := NewKnowledgeLoader("/nonexistent/kb", &fakeIndex{}, &fakeEmbedder{})

	count, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Nil(t, l.AvailableRoles())
}

// TestLoaderAvailableRoles 验证职位方向列表来自一级子目录
func TestLoaderAvailableRoles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "backend"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "frontend"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.md"), []byte("내용"), 0644))

	l := NewKnowledgeLoader(dir, nil, nil)
	assert.ElementsMatch(t, []string{"backend", "frontend"}, l.AvailableRoles())
}
