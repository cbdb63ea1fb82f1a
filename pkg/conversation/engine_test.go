package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/bookgraph/pkg/catalog"
	"github.com/randalmurphal/bookgraph/pkg/extract"
	"github.com/randalmurphal/bookgraph/pkg/graph"
	"github.com/randalmurphal/bookgraph/pkg/graph/checkpoint"
	"github.com/randalmurphal/bookgraph/pkg/llm"
	"github.com/randalmurphal/bookgraph/pkg/rewrite"
)

func TestHandleTurn_VerifiedTitleIsSpliced(t *testing.T) {
	gen := script{draft: `{"reply": "책 제목: \"살인자의 기억법\" 작가: 김영하"}`}.client()
	e := newEngine(t, Deps{Generator: gen, Catalog: catalog.NewInMemory(memoirItem)}, WithQueryRewrite(false))

	reply, err := e.HandleTurn(context.Background(), "김영하 소설 하나만 알려줘", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{StageGenerate, StageClassify, StageVerify}, reply.Path)
	assert.True(t, reply.Flags.Book)
	assert.False(t, reply.Fallback)
	require.Len(t, reply.Records, 1)
	assert.Equal(t, 7, reply.Records[0].Score)

	assert.Equal(t,
		`1. 책 이미지: https://img.example/memoir.jpg 책 제목: "살인자의 기억법" 작가: 김영하 출판사: 문학동네 `+
			`추천 이유: 알츠하이머에 걸린 연쇄살인범의 이야기. 기억이 사라져 간다. 구매 링크: https://book.example/memoir`,
		reply.Text)
	assert.NotContains(t, reply.Text, `책 제목: "살인자의 기억법" 작가: 김영하`+"\n")
}

func TestHandleTurn_UnknownTitleDegradesToNotFound(t *testing.T) {
	tests := []struct {
		name string
		cat  catalog.Catalog
	}{
		{"title missing from catalog", catalog.NewInMemory(memoirItem)},
		{"catalog always empty", catalog.NewInMemory()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := script{draft: `이 책을 추천해요: "존재하지않는책"`}.client()
			e := newEngine(t, Deps{Generator: gen, Catalog: tt.cat}, WithQueryRewrite(false))

			reply, err := e.HandleTurn(context.Background(), "책 추천해줘", nil)
			require.NoError(t, err)
			assert.Equal(t, rewrite.NotFoundMessage, reply.Text)
			assert.Empty(t, reply.Records)
		})
	}
}

func TestHandleTurn_NegativeEndsWithoutVerification(t *testing.T) {
	cat := &countingCatalog{Catalog: catalog.NewInMemory(memoirItem, travelItem)}
	gen := script{draft: `"살인자의 기억법" 또는 "여행의 이유" 중 어떤 책을 말씀하시나요?`}.client()
	e := newEngine(t, Deps{Generator: gen, Catalog: cat})

	reply, err := e.HandleTurn(context.Background(), "김영하 책", nil)
	require.NoError(t, err)

	assert.True(t, reply.Flags.Negative)
	assert.True(t, reply.Flags.Book)
	assert.Equal(t, []string{StageGenerate, StageClassify}, reply.Path)
	assert.Zero(t, cat.total())
	assert.Equal(t, Clarification, reply.Text, "unverified titles are scrubbed")
}

func TestHandleTurn_OffTopicKeepsDraft(t *testing.T) {
	cat := &countingCatalog{Catalog: catalog.NewInMemory(memoirItem)}
	gen := script{draft: "안녕하세요! 무엇을 도와드릴까요?"}.client()
	e := newEngine(t, Deps{Generator: gen, Catalog: cat})

	reply, err := e.HandleTurn(context.Background(), "안녕", nil)
	require.NoError(t, err)

	assert.Equal(t, "안녕하세요! 무엇을 도와드릴까요?", reply.Text)
	assert.Equal(t, []string{StageGenerate, StageClassify}, reply.Path)
	assert.Zero(t, cat.total())
	assert.Len(t, callsOf(gen, "rewrite"), 0)
}

func TestHandleTurn_DuplicateTitleLookedUpOnce(t *testing.T) {
	cat := &countingCatalog{Catalog: catalog.NewInMemory(memoirItem)}
	gen := script{draft: "\"살인자의 기억법\"을 추천합니다.\n다시 한번, \"살인자의 기억법\"은 꼭 읽어 보세요."}.client()
	e := newEngine(t, Deps{Generator: gen, Catalog: cat}, WithQueryRewrite(false))

	reply, err := e.HandleTurn(context.Background(), "소설 추천", nil)
	require.NoError(t, err)

	assert.Equal(t, int32(1), cat.titles.Load())
	assert.Zero(t, cat.keywords.Load())
	assert.Len(t, reply.Records, 1)
	assert.Equal(t, 1, strings.Count(reply.Text, "책 제목:"))
}

func TestHandleTurn_AuthorQuestionSearchesAndRecommendsTwo(t *testing.T) {
	var searches atomic.Int32
	cat := catalog.NewInMemory(memoirItem, travelItem)
	gen := script{
		draft:     "김영하 작가가 누구인지 궁금하시군요. 그의 책을 소개할게요.",
		rewrite:   "김영하 작가의 대표 소설 추천",
		recommend: "1. \"살인자의 기억법\" - 김영하\n2. \"여행의 이유\" - 김영하\n3. \"가짜책\" - 누군가",
	}.client()
	e := newEngine(t, Deps{
		Generator: gen,
		Catalog:   cat,
		Search:    staticSearch(&searches, `"김영하는 한국의 소설가다."`, `{"content": "대표작으로 살인자의 기억법이 있다."}`),
	})

	reply, err := e.HandleTurn(context.Background(), "김영하 작가 책 추천해줘", nil)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{StageGenerate, StageClassify, StageTransformQuery, StageWebSearch, StageVerify},
		reply.Path)
	assert.True(t, reply.Flags.Author)
	assert.Equal(t, int32(1), searches.Load())

	require.Len(t, reply.Records, 2)
	assert.Equal(t, "살인자의 기억법", reply.Records[0].Title)
	assert.Equal(t, "여행의 이유", reply.Records[1].Title)
	assert.NotContains(t, reply.Text, "가짜책")
	assert.Equal(t, []string{"살인자의 기억법", "여행의 이유"}, extract.Titles(reply.Text, extract.Quote))

	recs := callsOf(gen, "recommend")
	require.Len(t, recs, 1)
	prompt := recs[0].Messages[0].Content
	assert.Contains(t, prompt, "김영하 작가의 대표 소설 추천")
	assert.Contains(t, prompt, "김영하는 한국의 소설가다.")
	assert.Contains(t, prompt, "대표작으로 살인자의 기억법이 있다.")
	assert.Contains(t, recs[0].System, "2권")
}

func TestHandleTurn_NoAuthorSkipsWebSearch(t *testing.T) {
	var searches atomic.Int32
	gen := script{
		draft:     "슬픈 소설을 찾으시는군요.",
		rewrite:   "감성적인 한국 소설 추천",
		recommend: `"살인자의 기억법"`,
	}.client()
	e := newEngine(t, Deps{
		Generator: gen,
		Catalog:   catalog.NewInMemory(memoirItem),
		Search:    staticSearch(&searches, `"무시됨"`),
	})

	reply, err := e.HandleTurn(context.Background(), "슬픈 소설 추천해줘", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{StageGenerate, StageClassify, StageTransformQuery, StageVerify}, reply.Path)
	assert.Zero(t, searches.Load())
	assert.Len(t, reply.Records, 1)
}

func TestHandleTurn_RecommendFailureVerifiesReplyDraft(t *testing.T) {
	gen := script{
		draft:   `"살인자의 기억법" 같은 소설은 어떠세요?`,
		rewrite: "스릴러 소설 추천",
		fail:    map[string]error{"recommend": errGenerator},
	}.client()
	e := newEngine(t, Deps{Generator: gen, Catalog: catalog.NewInMemory(memoirItem)})

	reply, err := e.HandleTurn(context.Background(), "무서운 소설", nil)
	require.NoError(t, err)

	assert.False(t, reply.Fallback)
	assert.Len(t, reply.Records, 1)
	assert.Contains(t, reply.Text, `책 제목: "살인자의 기억법"`)
}

func TestHandleTurn_RewriteFailureFallsBackToQuestion(t *testing.T) {
	gen := script{
		draft:     "소설을 추천해 드릴게요.",
		recommend: `"살인자의 기억법"`,
		fail:      map[string]error{"rewrite": errGenerator},
	}.client()
	e := newEngine(t, Deps{Generator: gen, Catalog: catalog.NewInMemory(memoirItem)})

	reply, err := e.HandleTurn(context.Background(), "스릴러 소설 추천", nil)
	require.NoError(t, err)

	require.Len(t, callsOf(gen, "recommend"), 1)
	assert.Contains(t, callsOf(gen, "recommend")[0].Messages[0].Content, "스릴러 소설 추천")
	assert.Len(t, reply.Records, 1)
}

func TestHandleTurn_RecommendLimitCapsBlocks(t *testing.T) {
	gen := script{draft: "\"살인자의 기억법\"\n\"여행의 이유\"\n두 권 모두 좋은 책입니다."}.client()
	cat := catalog.NewInMemory(memoirItem, travelItem)

	tests := []struct {
		name   string
		opts   []Option
		blocks int
	}{
		{"default book count", nil, 1},
		{"configured book count", []Option{WithRecommendations(2, 3)}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, Deps{Generator: gen, Catalog: cat}, append(tt.opts, WithQueryRewrite(false))...)
			reply, err := e.HandleTurn(context.Background(), "책 추천", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.blocks, strings.Count(reply.Text, "책 제목:"))
			assert.Len(t, reply.Records, 2, "every candidate is verified")
		})
	}
}

func TestHandleTurn_FailuresBecomeApology(t *testing.T) {
	tests := []struct {
		name      string
		gen       llm.Client
		cat       catalog.Catalog
		wantStage string
	}{
		{
			name:      "generator error",
			gen:       script{fail: map[string]error{"generate": errGenerator}}.client(),
			cat:       catalog.NewInMemory(),
			wantStage: StageGenerate,
		},
		{
			name:      "empty draft",
			gen:       script{draft: "   "}.client(),
			cat:       catalog.NewInMemory(),
			wantStage: StageGenerate,
		},
		{
			name:      "empty structured reply",
			gen:       script{draft: `{"reply": "  "}`}.client(),
			cat:       catalog.NewInMemory(),
			wantStage: StageGenerate,
		},
		{
			name:      "catalog panic",
			gen:       script{draft: `"살인자의 기억법"을 추천합니다.`}.client(),
			cat:       panicCatalog{},
			wantStage: StageVerify,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, Deps{Generator: tt.gen, Catalog: tt.cat}, WithQueryRewrite(false))
			history := []llm.Message{llm.UserMessage("안녕"), llm.AssistantMessage("안녕하세요")}

			reply, err := e.HandleTurn(context.Background(), "책 추천", history)
			require.NoError(t, err)

			assert.True(t, reply.Fallback)
			assert.Equal(t, Apology, reply.Text)
			assert.Empty(t, reply.Records)
			require.Len(t, reply.History, 4)
			assert.Equal(t, llm.UserMessage("책 추천"), reply.History[2])
			assert.Equal(t, llm.AssistantMessage(Apology), reply.History[3])
			assert.NotContains(t, reply.Path, tt.wantStage)
		})
	}
}

func TestHandleTurn_EmptyMessage(t *testing.T) {
	gen := script{draft: "unused"}.client()
	cat := &countingCatalog{Catalog: catalog.NewInMemory()}
	e := newEngine(t, Deps{Generator: gen, Catalog: cat})

	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := e.HandleTurn(context.Background(), msg, nil)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
	assert.Zero(t, gen.CallCount())
	assert.Zero(t, cat.total())
}

func TestHandleTurn_DoesNotMutateHistory(t *testing.T) {
	gen := script{draft: "안녕하세요."}.client()
	e := newEngine(t, Deps{Generator: gen, Catalog: catalog.NewInMemory()})

	history := make([]llm.Message, 1, 8)
	history[0] = llm.UserMessage("이전 질문")

	reply, err := e.HandleTurn(context.Background(), "안녕", history)
	require.NoError(t, err)

	assert.Len(t, history, 1)
	assert.Equal(t, llm.Message{}, history[:2][1], "spare capacity untouched")
	assert.Equal(t, []llm.Message{
		llm.UserMessage("이전 질문"),
		llm.UserMessage("안녕"),
		llm.AssistantMessage("안녕하세요."),
	}, reply.History)

	first := callsOf(gen, "generate")[0]
	assert.Equal(t, reply.History[:2], first.Messages)
}

func TestHandleTurn_RawDraftWhenSchemaIgnored(t *testing.T) {
	gen := script{draft: "그냥 텍스트로 답합니다."}.client()
	e := newEngine(t, Deps{Generator: gen, Catalog: catalog.NewInMemory()})

	reply, err := e.HandleTurn(context.Background(), "안녕", nil)
	require.NoError(t, err)
	assert.Equal(t, "그냥 텍스트로 답합니다.", reply.Text)

	req := callsOf(gen, "generate")[0]
	assert.Equal(t, "reply", req.SchemaName)
	assert.Contains(t, req.System, `"제목"`)
}

func TestHandleTurn_RawDraftContainingOtherJSON(t *testing.T) {
	draft := `설정 예시는 {"mode":"x"} 처럼 적어 주세요.`
	gen := script{draft: draft}.client()
	e := newEngine(t, Deps{Generator: gen, Catalog: catalog.NewInMemory()}, WithDelimiter(extract.Corner))

	reply, err := e.HandleTurn(context.Background(), "안녕", nil)
	require.NoError(t, err)
	assert.False(t, reply.Fallback)
	assert.Equal(t, draft, reply.Text)
}

func TestHandleTurn_DelimiterConvention(t *testing.T) {
	gen := script{draft: "『살인자의 기억법』을 추천합니다."}.client()
	e := newEngine(t, Deps{Generator: gen, Catalog: catalog.NewInMemory(memoirItem)},
		WithDelimiter(extract.Corner), WithQueryRewrite(false))

	reply, err := e.HandleTurn(context.Background(), "책", nil)
	require.NoError(t, err)

	assert.Contains(t, reply.Text, "책 제목: 『살인자의 기억법』")
	assert.Contains(t, callsOf(gen, "generate")[0].System, "『제목』")
}

func TestHandleTurn_CheckpointsAndTrace(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	gen := script{draft: `"살인자의 기억법" 책을 추천해요.`}.client()
	e := newEngine(t, Deps{Generator: gen, Catalog: catalog.NewInMemory(memoirItem)},
		WithCheckpoints(store), WithQueryRewrite(false))

	reply, err := e.HandleTurn(context.Background(), "책 추천", nil)
	require.NoError(t, err)

	snaps, err := e.Trace(reply.RunID)
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	var stages []string
	for _, s := range snaps {
		stages = append(stages, s.StageID)
	}
	assert.Equal(t, reply.Path, stages)

	assert.Equal(t, StageClassify, snaps[0].NextStage)
	assert.Equal(t, `"살인자의 기억법" 책을 추천해요.`, snaps[0].State.Draft)
	assert.False(t, snaps[1].State.Finished)
	assert.Equal(t, 1, snaps[1].State.Recommend)

	last := snaps[2]
	assert.Equal(t, graph.End, last.NextStage)
	assert.Equal(t, StageClassify, last.PrevStage)
	assert.True(t, last.State.Finished)
	assert.Equal(t, reply.Text, last.State.Final)

	_, err = e.Trace("no-such-run")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestTrace_WithoutCheckpoints(t *testing.T) {
	e := newEngine(t, Deps{Generator: script{}.client(), Catalog: catalog.NewInMemory()})
	_, err := e.Trace("run")
	assert.ErrorIs(t, err, ErrNoCheckpoints)
}

func TestHandleTurn_ConcurrentTurns(t *testing.T) {
	gen := llm.NewMockClient("").WithCompleteFunc(func(_ context.Context, req llm.Request) (*llm.Response, error) {
		last := req.Messages[len(req.Messages)-1].Content
		return &llm.Response{Content: fmt.Sprintf(`{"reply": "%s에 대한 답변입니다."}`, last)}, nil
	})
	e := newEngine(t, Deps{Generator: gen, Catalog: catalog.NewInMemory()})

	var wg sync.WaitGroup
	replies := make([]Reply, 16)
	for i := range replies {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := e.HandleTurn(context.Background(), fmt.Sprintf("질문%d", i), nil)
			assert.NoError(t, err)
			replies[i] = r
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, r := range replies {
		assert.Equal(t, fmt.Sprintf("질문%d에 대한 답변입니다.", i), r.Text)
		assert.False(t, seen[r.RunID], "run IDs are unique")
		seen[r.RunID] = true
	}
}

func TestUntilFinished(t *testing.T) {
	called := false
	stage := untilFinished(func(_ graph.Context, s TurnState) (TurnState, error) {
		called = true
		s.Final = "overwritten"
		return s, nil
	})

	in := TurnState{}
	in.finish("first")
	in.finish("second")

	out, err := stage(graph.NewContext(context.Background()), in)
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, "first", out.Final)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Deps{Catalog: catalog.NewInMemory()})
	assert.ErrorIs(t, err, ErrNoGenerator)

	_, err = New(Deps{Generator: script{}.client()})
	assert.ErrorIs(t, err, ErrNoCatalog)

	_, err = New(Deps{Generator: script{}.client()}, WithVerifier(catalog.NewVerifier(catalog.NewInMemory())))
	assert.NoError(t, err)
}
