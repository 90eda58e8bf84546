package ai

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type fakeCompletionAPI struct {
	reply   string
	err     error
	lastReq openai.ChatCompletionRequest
}

func (f *fakeCompletionAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.reply}},
		},
	}, nil
}

func newTestService(api completionAPI) *Service {
	return &Service{api: api, model: "test-model", logger: slog.Default()}
}

func TestChatPlainReply(t *testing.T) {
	api := &fakeCompletionAPI{reply: "What role are you targeting?"}
	svc := newTestService(api)

	res, err := svc.Chat(context.Background(), nil, "hi")
	if err != nil {
		t.Fatal(err)
	}
	if res.Action != ActionNone || res.Reply != "What role are you targeting?" {
		t.Fatalf("result = %+v", res)
	}
	if res.CVData != nil {
		t.Fatal("plain reply must not carry cv data")
	}
}

func TestChatBuildTrigger(t *testing.T) {
	api := &fakeCompletionAPI{reply: "Great, building now.\nBUILDING_CV_NOW\n```json\n" +
		`{"full_name":"Ada Lovelace","desired_job_title":"Engineer","top_skills":["Go"]}` + "\n```"}
	svc := newTestService(api)

	res, err := svc.Chat(context.Background(), nil, "go ahead")
	if err != nil {
		t.Fatal(err)
	}
	if res.Action != ActionGenerate {
		t.Fatalf("action = %q", res.Action)
	}
	if res.Reply != "Great, building now." {
		t.Fatalf("reply = %q", res.Reply)
	}
	if res.CVData["full_name"] != "Ada Lovelace" {
		t.Fatalf("cv data = %v", res.CVData)
	}
}

func TestChatTriggerWithBadJSONDegrades(t *testing.T) {
	api := &fakeCompletionAPI{reply: "BUILDING_CV_NOW\n{not json"}
	svc := newTestService(api)

	res, err := svc.Chat(context.Background(), nil, "go")
	if err != nil {
		t.Fatal(err)
	}
	if res.Action != ActionNone || res.CVData != nil {
		t.Fatalf("bad trigger JSON must degrade to plain reply: %+v", res)
	}
}

func TestChatHistoryBounded(t *testing.T) {
	api := &fakeCompletionAPI{reply: "ok"}
	svc := newTestService(api)

	history := make([]Turn, 25)
	for i := range history {
		history[i] = Turn{Role: "user", Content: strings.Repeat("x", i+1)}
	}
	if _, err := svc.Chat(context.Background(), history, "latest"); err != nil {
		t.Fatal(err)
	}

	// system + 10 轮 + 最新消息
	if got := len(api.lastReq.Messages); got != historyLimit+2 {
		t.Fatalf("forwarded %d messages, want %d", got, historyLimit+2)
	}
	// 保留的是最近的轮
	first := api.lastReq.Messages[1].Content
	if len(first) != 16 {
		t.Fatalf("oldest forwarded turn = %q, want the 16th", first)
	}
}

func TestGenerateUploadModeGuardsIdentity(t *testing.T) {
	api := &fakeCompletionAPI{
		reply: `{"full_name":"Mathematics Graduate","email":"nope","phone":"","desired_job_title":"Engineer"}`,
	}
	svc := newTestService(api)

	data, err := svc.Generate(context.Background(), GenerationRequest{
		ResumeText: "Ada Lovelace\nada@example.com\n+44 1234 567 890\nExperience ...",
	})
	if err != nil {
		t.Fatal(err)
	}
	if data["full_name"] != "Ada Lovelace" {
		t.Fatalf("identity guard missed name: %v", data["full_name"])
	}
	if data["email"] != "ada@example.com" {
		t.Fatalf("identity guard missed email: %v", data["email"])
	}
	if data["phone"] != "+44 1234 567 890" {
		t.Fatalf("identity guard missed phone: %v", data["phone"])
	}
}

func TestGenerateFormModeJoinsSkillList(t *testing.T) {
	api := &fakeCompletionAPI{reply: `{"full_name":"Jane"}`}
	svc := newTestService(api)

	_, err := svc.Generate(context.Background(), GenerationRequest{
		FullName:        "Jane",
		Email:           "jane@example.com",
		DesiredJobTitle: "Engineer",
		TopSkills:       []string{"Go", "SQL"},
	})
	if err != nil {
		t.Fatal(err)
	}
	prompt := api.lastReq.Messages[0].Content
	if !strings.Contains(prompt, "Skills: Go, SQL") {
		t.Fatalf("skill list not joined into prompt: %q", prompt)
	}
}

func TestExtractPersonalInfo(t *testing.T) {
	text := "Curriculum Vitae\nAda Lovelace\nada@example.com\n+44 1234 567 890"
	info := ExtractPersonalInfo(text)
	if info.FullName != "Ada Lovelace" {
		t.Fatalf("name = %q", info.FullName)
	}
	if info.Email != "ada@example.com" {
		t.Fatalf("email = %q", info.Email)
	}
	if info.Phone == "" {
		t.Fatal("phone not extracted")
	}
}

func TestTruncateUploadText(t *testing.T) {
	long := strings.Repeat("a", UploadTextLimit+500)
	if got := TruncateUploadText(long); len(got) != UploadTextLimit {
		t.Fatalf("len = %d", len(got))
	}
	if got := TruncateUploadText("short"); got != "short" {
		t.Fatalf("short text altered: %q", got)
	}
}

func TestCleanJSONResponse(t *testing.T) {
	in := "```json\n{\"a\":1}\n```"
	if got := cleanJSONResponse(in); got != `{"a":1}` {
		t.Fatalf("got %q", got)
	}
}
