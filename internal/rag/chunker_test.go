package rag

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	require.Equal(t, "hello world", CleanText("  hello \t\n  world  "))
	require.Equal(t, "ab c", CleanText("a\x00b\a c"))
	require.Equal(t, "", CleanText("   \n\t  "))
}

func TestChunkTextEmpty(t *testing.T) {
	chunker := NewChunker(500, 50)

	require.Nil(t, chunker.ChunkText("", "doc.txt"))
	require.Nil(t, chunker.ChunkText("   \n\n  ", "doc.txt"))
}

func TestChunkTextSingleChunk(t *testing.T) {
	chunker := NewChunker(500, 50)

	chunks := chunker.ChunkText("First sentence here. Second sentence follows! Third one?", "doc.txt")
	require.Len(t, chunks, 1)
	require.Equal(t, 0, chunks[0].Index)
	require.Equal(t, "doc.txt", chunks[0].Source)
	require.Equal(t, "First sentence here. Second sentence follows! Third one?", chunks[0].Text)
}

func TestChunkTextRespectsWordBudget(t *testing.T) {
	chunker := NewChunker(500, 50)

	// 120 句，每句 10 词，共 1200 词：500 词预算下切成 3 块
	var sb strings.Builder
	for i := 0; i < 120; i++ {
		sb.WriteString(fmt.Sprintf("sentence %d has exactly ten words in it right now. ", i))
	}
	chunks := chunker.ChunkText(sb.String(), "long.txt")
	require.Len(t, chunks, 3)

	for i, chunk := range chunks {
		require.Equal(t, i, chunk.Index)
		require.LessOrEqual(t, len(strings.Fields(chunk.Text)), 500)
	}

	// 分块拼回应覆盖全部原文
	rejoined := strings.Join([]string{chunks[0].Text, chunks[1].Text, chunks[2].Text}, " ")
	require.Equal(t, CleanText(sb.String()), rejoined)
}

func TestChunkTextKeepsSentencesIntact(t *testing.T) {
	chunker := NewChunker(10, 0)

	chunks := chunker.ChunkText(
		"Short one. This second sentence carries quite a few more words than the first. Tail.",
		"doc.txt",
	)
	require.GreaterOrEqual(t, len(chunks), 2)
	for _, chunk := range chunks {
		// 块边界不拆句：每块要么以句号结尾，要么是文档末尾
		require.True(t, strings.HasSuffix(chunk.Text, ".") || chunk.Index == len(chunks)-1)
	}
}

func TestChunkTextOversizedSentence(t *testing.T) {
	chunker := NewChunker(5, 0)

	long := strings.Repeat("word ", 30) + "end."
	chunks := chunker.ChunkText("Small start. "+long, "doc.txt")

	// 超长单句不再二次切分，整句独立成块
	require.Len(t, chunks, 2)
	require.Equal(t, "Small start.", chunks[0].Text)
	require.Equal(t, strings.TrimSpace(long), chunks[1].Text)
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One. Two! Three? Four")
	require.Equal(t, []string{"One.", "Two!", "Three?", "Four"}, got)

	// 句中标点后无空白不切分
	got = splitSentences("Version 1.2 works fine. Done.")
	require.Equal(t, []string{"Version 1.2 works fine.", "Done."}, got)
}
