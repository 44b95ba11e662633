package story

import (
	"regexp"
	"strings"
)

var (
	emphasisRe  = regexp.MustCompile(`\*\*(.*?)\*\*`)
	midWrapRe   = regexp.MustCompile(`(\S)\n(\S)`)
	blankRunsRe = regexp.MustCompile(`\n{3,}`)
)

// Normalize 清洗模型返回的原始文本
//
// 依次：去除成对双星号强调标记并保留包裹的文本；将落在两个非空白字符之间的
// 换行（段中误断行）合并为空格；把连续三个以上换行压成一个空行；
// 去除首尾空白。满足幂等性：Normalize(Normalize(x)) == Normalize(x)。
func Normalize(raw string) string {
	// 去标记与并行合并循环至不动点：正则替换不回扫已消费的字符，
	// "a\nb\nc" 一轮只能合并一处；跨断行的 "**…**" 对（. 不匹配换行）
	// 要先合并才能被去除。两步交替直到串稳定，保证单次调用幂等
	s := raw
	for {
		next := emphasisRe.ReplaceAllString(s, "$1")
		next = midWrapRe.ReplaceAllString(next, "$1 $2")
		if next == s {
			break
		}
		s = next
	}

	s = blankRunsRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
