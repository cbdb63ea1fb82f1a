package rewrite

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/bookgraph/pkg/catalog"
	"github.com/randalmurphal/bookgraph/pkg/extract"
)

var memoir = catalog.Record{
	Item: catalog.Item{
		Title:       "살인자의 기억법",
		Author:      "김영하",
		Publisher:   "문학동네",
		Description: `알츠하이머에 걸린 "연쇄살인범"의 이야기. 기억은 사라진다! 세 번째 문장은 빠진다.`,
		Image:       "https://img.example/memoir.jpg",
		Link:        "https://book.example/memoir",
		ISBN:        "9788954621397",
	},
	Candidate: "살인자의 기억법",
	Score:     7,
}

var reason = catalog.Record{
	Item: catalog.Item{
		Title:       "여행의 이유",
		Author:      "김영하",
		Publisher:   "문학동네",
		Description: "작가의 여행 산문.",
		Link:        "https://book.example/travel",
		ISBN:        "9788954655972",
	},
	Candidate: "여행의 이유",
	Score:     7,
}

const memoirBlock = `1. 책 이미지: https://img.example/memoir.jpg 책 제목: "살인자의 기억법" 작가: 김영하 출판사: 문학동네 추천 이유: 알츠하이머에 걸린 연쇄살인범의 이야기. 기억은 사라진다! 구매 링크: https://book.example/memoir`

func TestRewrite(t *testing.T) {
	tests := []struct {
		name    string
		draft   string
		records []catalog.Record
		limit   int
		want    string
	}{
		{
			name:    "verified entity line becomes a block",
			draft:   `책 제목: "살인자의 기억법" 작가: 김영하`,
			records: []catalog.Record{memoir},
			limit:   1,
			want:    memoirBlock,
		},
		{
			name:  "unverified entity degrades to not found",
			draft: `책 제목: "존재하지않는책" 작가: 누군가`,
			want:  NotFoundMessage,
		},
		{
			name:  "draft without entities passes through",
			draft: "  안녕하세요! 어떤 책을 좋아하세요?\n",
			want:  "안녕하세요! 어떤 책을 좋아하세요?",
		},
		{
			name: "prose kept, unverified line dropped",
			draft: "이런 책을 추천해요.\n" +
				`1. "존재하지않는책" - 가짜` + "\n" +
				`2. "살인자의 기억법" - 김영하` + "\n" +
				"즐거운 독서 되세요.",
			records: []catalog.Record{memoir},
			limit:   2,
			want:    "이런 책을 추천해요.\n" + memoirBlock + "\n즐거운 독서 되세요.",
		},
		{
			name: "duplicate entity yields one block",
			draft: `"살인자의 기억법"은 김영하의 소설입니다.` + "\n" +
				`다시 말하지만 "살인자의 기억법"을 추천합니다.`,
			records: []catalog.Record{memoir},
			want:    memoirBlock,
		},
		{
			name:    "limit caps blocks",
			draft:   `"살인자의 기억법"` + "\n" + `"여행의 이유"`,
			records: []catalog.Record{memoir, reason},
			limit:   1,
			want:    memoirBlock,
		},
		{
			name:    "blocks follow first appearance",
			draft:   `"여행의 이유" 그리고 "살인자의 기억법"`,
			records: []catalog.Record{memoir, reason},
			want: `1. 책 제목: "여행의 이유" 작가: 김영하 출판사: 문학동네 추천 이유: 작가의 여행 산문. 구매 링크: https://book.example/travel` +
				"\n" + strings.Replace(memoirBlock, "1.", "2.", 1),
		},
		{
			name:    "two candidates confirming one item splice once",
			draft:   `"살인자의 기억법"` + "\n" + `"기억법"`,
			records: []catalog.Record{memoir, withCandidate(memoir, "기억법")},
			want:    memoirBlock,
		},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Rewrite(tt.draft, tt.records, tt.limit)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Rewrite() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func withCandidate(rec catalog.Record, candidate string) catalog.Record {
	rec.Candidate = candidate
	return rec
}

func TestRewrite_NeverLeaksUnverifiedEntities(t *testing.T) {
	drafts := []string{
		`"살인자의 기억법", "존재하지않는책", "여행의 이유"를 추천합니다.`,
		"추천:\n- \"가짜책\"\n- \"살인자의 기억법\"\n- \"또다른가짜\"",
		`"존재하지않는책"`,
		`"여행의 이유" 작가 "김영하" 출판사 "문학동네"`,
	}
	records := []catalog.Record{memoir, reason}
	r := New()

	for _, draft := range drafts {
		got := r.Rewrite(draft, records, 0)
		for _, title := range extract.Titles(got, extract.Quote) {
			assert.Contains(t, []string{memoir.Title, reason.Title}, title, "draft %q", draft)
		}
	}
}

func TestRewrite_StripsDelimiterFromCatalogFields(t *testing.T) {
	rec := memoir
	rec.Title = `『살인자의』 기억법`
	rec.Publisher = "『문학』동네"
	r := New(WithDelimiter(extract.Corner))

	got := r.Rewrite("『살인자의 기억법』", []catalog.Record{rec}, 1)

	assert.Equal(t, []string{"살인자의 기억법"}, extract.Titles(got, extract.Corner))
	assert.Contains(t, got, "출판사: 문학동네")
}

func TestRewrite_Options(t *testing.T) {
	r := New(
		WithSynopsisSentences(1),
		WithNotFoundMessage("없어요"),
		WithLabels(Labels{Title: "Title", Author: "By", Synopsis: "About"}),
	)

	assert.Equal(t, "없어요", r.Rewrite(`"없는책"`, nil, 1))
	assert.Equal(t,
		`1. Title: "여행의 이유" By: 김영하 About: 작가의 여행 산문.`,
		r.Rewrite(`"여행의 이유"`, []catalog.Record{{Item: catalog.Item{
			Title: "여행의 이유", Author: "김영하", Description: "작가의 여행 산문. 둘째 문장.",
		}, Candidate: "여행의 이유"}}, 1))
}

func TestScrub(t *testing.T) {
	r := New()
	tests := []struct {
		name, draft, want string
	}{
		{"keeps prose", "안녕하세요.\n무엇을 도와드릴까요?", "안녕하세요.\n무엇을 도와드릴까요?"},
		{"drops entity lines", "좋은 질문이에요.\n\"어떤 책\"을 보세요.\n\n감사합니다.", "좋은 질문이에요.\n\n감사합니다."},
		{"everything scrubbed", `"가짜책"`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Scrub(tt.draft))
		})
	}
}

func TestSynopsis(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{"two sentences", "첫 문장. 둘째 문장! 셋째 문장?", 2, "첫 문장. 둘째 문장!"},
		{"fewer than n", "하나뿐인 문장", 3, "하나뿐인 문장"},
		{"decimal does not split", "평점 4.5점의 책. 다음.", 1, "평점 4.5점의 책."},
		{"ellipsis run", "그리고… 끝났다. 정말로.", 1, "그리고…"},
		{"closing quote stays", `그가 말했다 "끝이야." 그리고 떠났다.`, 1, `그가 말했다 "끝이야."`},
		{"ideographic stop", "始まり。終わり。", 1, "始まり。終わり。"},
		{"whitespace collapsed", "  줄\n바꿈.  다음 ", 1, "줄 바꿈."},
		{"zero means all", "a. b.", 0, "a. b."},
		{"empty", "", 2, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Synopsis(tt.text, tt.n))
		})
	}
}
