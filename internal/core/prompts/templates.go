package prompts

import (
	"text/template"

	"headline-sft/internal/core/types"
)

type systemPromptFields struct {
	Style    string
	Task     types.Task
	Guidance []string
}

type userPromptFields struct {
	Title   string
	Lead    string
	Content string
}

const titleSystemPrompt = `[STYLE={{ .Style }}][TASK={{ .Task }}]
Bạn là tổng biên tập báo chí dày dạn kinh nghiệm.
Nhiệm vụ của bạn là viết một tiêu đề ngắn gọn, hấp dẫn, đúng phong cách báo chí chuyên nghiệp và dễ hiểu với độc giả đại chúng, dựa trên phần *lead* và *content* được cung cấp.
Title cần:
- Chỉ in ra tiêu đề, KHÔNG kèm giải thích.
- Ngắn gọn dưới 15 từ, dễ hiểu, rõ ràng.
- Không sử dụng '?', '!', ';', '"'
- Không emoji/hashtag; không số liệu suy đoán.
{{- range .Guidance }}
- {{ . }}
{{- end }}
`

const leadSystemPrompt = `[STYLE={{ .Style }}][TASK={{ .Task }}]
Bạn là tổng biên tập báo chí dày dạn kinh nghiệm.
Nhiệm vụ của bạn là viết một đoạn *lead* ngắn gọn, súc tích và hấp dẫn dựa trên phần *content* được cung cấp.
Lead cần:
- Tóm tắt ý chính quan trọng nhất của bài viết.
- Gây tò mò, thu hút độc giả tiếp tục đọc.
- Viết theo phong cách báo chí chuyên nghiệp, dễ hiểu với độc giả đại chúng.
- Độ dài khoảng từ 1 đến 3 câu.
- Không dùng emoji/hashtag; không bịa số liệu.
{{- range .Guidance }}
- {{ . }}
{{- end }}
`

const generalSystemPrompt = `[STYLE={{ .Style }}][TASK={{ .Task }}]
Bạn là tổng biên tập báo chí dày dạn kinh nghiệm.
Nhiệm vụ của bạn là viết tiêu đề và *lead* cho bài viết dựa trên phần *content* được cung cấp.
Đầu ra cần:
- Dòng đầu tiên là tiêu đề dưới 15 từ, không sử dụng '?', '!', ';', '"'.
- Dòng thứ hai là lead từ 1 đến 3 câu, tóm tắt ý chính quan trọng nhất.
- Không kèm giải thích; không emoji/hashtag; không bịa số liệu.
{{- range .Guidance }}
- {{ . }}
{{- end }}
`

const titleUserPrompt = `Hãy viết MỘT tiêu đề duy nhất dựa trên LEAD và CONTENT sau.

LEAD:
{{ .Lead }}

CONTENT:
{{ .Content }}
`

const leadUserPrompt = `Tạo LEAD với độ dài từ 1 đến 3 câu cho bài viết dựa trên CONTENT sau.

CONTENT:
{{ .Content }}
`

const generalUserPrompt = `Hãy viết tiêu đề và LEAD cho bài viết dựa trên CONTENT sau.

CONTENT:
{{ .Content }}
`

// styleGuidance holds the extra rules of each known style. Unknown styles get
// defaultGuidance.
var styleGuidance = map[string][]string{
	types.StyleLifestyle: {
		"Giọng văn gần gũi, ấm áp nhưng trung tính, đặt con người ở trung tâm câu chuyện.",
	},
	types.StyleTravel: {
		"Nêu rõ địa danh và trải nghiệm nổi bật; tránh ngôn ngữ quảng cáo.",
	},
	types.StyleSciTech: {
		"Dùng thuật ngữ chính xác, giải thích dễ hiểu; không phóng đại kết quả nghiên cứu.",
	},
}

var defaultGuidance = []string{
	"Giọng văn trung tính, chính xác, ưu tiên câu chủ động.",
}

type taskTemplates struct {
	system *template.Template
	user   *template.Template
}

var templatesByTask = map[types.Task]taskTemplates{
	types.TaskTitle: {
		system: template.Must(template.New("titleSystemPrompt").Parse(titleSystemPrompt)),
		user:   template.Must(template.New("titleUserPrompt").Parse(titleUserPrompt)),
	},
	types.TaskLead: {
		system: template.Must(template.New("leadSystemPrompt").Parse(leadSystemPrompt)),
		user:   template.Must(template.New("leadUserPrompt").Parse(leadUserPrompt)),
	},
	types.TaskGeneral: {
		system: template.Must(template.New("generalSystemPrompt").Parse(generalSystemPrompt)),
		user:   template.Must(template.New("generalUserPrompt").Parse(generalUserPrompt)),
	},
}
