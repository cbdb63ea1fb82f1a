package judge

import "regexp"

var defaultClassifier = NewClassifier(DefaultRules())

// DefaultRules is the Korean/English rule table used by Classify.
func DefaultRules() []Rule {
	return []Rule{
		{
			Flag: FlagBook,
			Keywords: []string{
				"책", "소설", "문학", "작가", "읽다", "읽어", "독서", "출판사", "장르",
				"챕터", "이야기", "도서관", "베스트셀러", "추천", "저자", "서적", "도서",
			},
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(title|novels?|authors?|publishers?|genres?|recommend\w*|read(ing)?|books?)\b`),
			},
		},
		{
			Flag: FlagAuthor,
			Keywords: []string{
				"누가 썼", "누가 쓴", "누가 지은", "저자는 누구", "작가는 누구", "작가가 누구", "쓴 사람",
			},
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\bwho (wrote|is the author)\b`),
				regexp.MustCompile(`(?i)\bauthor of\b`),
			},
		},
		{
			Flag: FlagNegative,
			Keywords: []string{
				"불가능", "이 중에서", "이 중 어떤", "여러 가지", "몇 가지", "예/아니오", "아니면", "또는", "혹은",
			},
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(impossible|among these|several|yes or no)\b`),
				regexp.MustCompile(`(?i)\s+or\s+`),
			},
		},
	}
}
