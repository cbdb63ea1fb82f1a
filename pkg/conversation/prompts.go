package conversation

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/bookgraph/pkg/extract"
)

const generateTemplate = `당신은 친절한 도서 추천 도우미입니다.
- 사용자의 질문에 자연스럽고 간결하게 답하세요.
- 책에 관한 질문은 책에 관한 질문으로 다시 정리해서 답하세요.
- 뜻이 모호한 단어가 있으면 어떤 의미인지 되물어 주세요.
- 책 제목을 언급할 때는 반드시 %s 형식으로 감싸세요.`

const recommendTemplate = `당신은 도서 추천 전문가입니다.
아래 질문과 참고 자료를 바탕으로 실제로 출간된 책을 %d권 추천하세요.
- 책마다 한 줄로 작성하고, 책 제목은 반드시 %s 형식으로 감싸세요.
- 제목 외의 문장에는 %s 기호를 쓰지 마세요.
- 확실하지 않은 책은 추천하지 마세요.`

func generateInstruction(d extract.Delimiter) string {
	return fmt.Sprintf(generateTemplate, d.Wrap("제목"))
}

func recommendInstruction(n int, d extract.Delimiter) string {
	marks := d.Open
	if d.Close != d.Open {
		marks += d.Close
	}
	return fmt.Sprintf(recommendTemplate, n, d.Wrap("제목"), marks)
}

func recommendPrompt(query string, docs []string) string {
	var b strings.Builder
	b.WriteString("질문: ")
	b.WriteString(query)
	if len(docs) > 0 {
		b.WriteString("\n\n참고 자료:")
		for _, d := range docs {
			b.WriteString("\n- ")
			b.WriteString(d)
		}
	}
	return b.String()
}

// Apology ends a turn the graph could not complete.
const Apology = "죄송하지만, 요청을 처리할 수 없습니다. 잠시 후 다시 시도해 주세요."

// Clarification replaces a reply that named only unverifiable books.
const Clarification = "어떤 책을 찾고 계신지 조금 더 자세히 알려 주시겠어요?"
