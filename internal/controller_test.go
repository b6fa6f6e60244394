package internal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/rag-chat/testutil"
)

// sendResult carries one SendQuestion outcome across a goroutine boundary.
type sendResult struct {
	msg Message
	err error
}

// sendAsync runs SendQuestion in the background and blocks until the mock
// has the request open, so the test can act while it is in flight.
func sendAsync(t *testing.T, ctrl *Controller, mock *testutil.MockAPI, text string) <-chan sendResult {
	t.Helper()
	done := make(chan sendResult, 1)
	go func() {
		msg, err := ctrl.SendQuestion(context.Background(), text)
		done <- sendResult{msg: msg, err: err}
	}()
	select {
	case <-mock.QueryStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("query never reached the mock service")
	}
	return done
}

func newTestController(t *testing.T) (*Controller, *testutil.MockAPI, *testutil.MemStore) {
	t.Helper()
	mock := testutil.NewMockAPI(t)
	store := testutil.NewMemStore()
	ctrl := NewController(store, NewClient(mock.URL(), 0))
	return ctrl, mock, store
}

func TestController_SendQuestion(t *testing.T) {
	ctrl, mock, _ := newTestController(t)

	answer, err := ctrl.SendQuestion(context.Background(), "what is in the report?")
	if err != nil {
		t.Fatalf("SendQuestion() error = %v", err)
	}
	if answer.Role != RoleAssistant {
		t.Errorf("SendQuestion() role = %q, want %q", answer.Role, RoleAssistant)
	}
	if answer.Text != "mock answer" {
		t.Errorf("SendQuestion() text = %q, want %q", answer.Text, "mock answer")
	}
	if len(answer.Sources) != 2 {
		t.Errorf("SendQuestion() sources = %v, want 2 passages", answer.Sources)
	}

	// A session was created automatically and holds the full exchange.
	sid := ctrl.Active()
	if sid == "" {
		t.Fatal("Active() = empty after SendQuestion()")
	}
	msgs := ctrl.Log().Load(sid)
	if len(msgs) != 2 {
		t.Fatalf("log has %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Text != "what is in the report?" {
		t.Errorf("log[0] = %+v, want the user question", msgs[0])
	}
	if msgs[1].Role != RoleAssistant {
		t.Errorf("log[1].Role = %q, want %q", msgs[1].Role, RoleAssistant)
	}

	// The preview now shows the answer and the counter ticked.
	s, _ := ctrl.Registry().Get(sid)
	if s.LastMessagePreview != "mock answer" {
		t.Errorf("preview = %q, want %q", s.LastMessagePreview, "mock answer")
	}
	if got := ctrl.Counter().Today(); got != 1 {
		t.Errorf("Counter().Today() = %d, want 1", got)
	}

	// No attachment yet, so the query went out unscoped.
	if len(mock.QueryCalls) != 1 {
		t.Fatalf("mock saw %d query calls, want 1", len(mock.QueryCalls))
	}
	if mock.QueryCalls[0].SessionID != "" {
		t.Errorf("query session_id = %q, want empty before any attach", mock.QueryCalls[0].SessionID)
	}
}

func TestController_SendQuestionRejectsBlank(t *testing.T) {
	ctrl, mock, _ := newTestController(t)

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := ctrl.SendQuestion(context.Background(), text); !errors.Is(err, ErrEmptyQuestion) {
			t.Errorf("SendQuestion(%q) error = %v, want ErrEmptyQuestion", text, err)
		}
	}

	// Nothing was appended and nothing left the process.
	if sid := ctrl.Active(); sid != "" {
		if msgs := ctrl.Log().Load(sid); len(msgs) != 0 {
			t.Errorf("log has %d messages after blank questions, want 0", len(msgs))
		}
	}
	if len(mock.QueryCalls) != 0 {
		t.Errorf("mock saw %d query calls, want 0", len(mock.QueryCalls))
	}
	if got := ctrl.Counter().Today(); got != 0 {
		t.Errorf("Counter().Today() = %d, want 0", got)
	}
}

func TestController_SendQuestionServerError(t *testing.T) {
	ctrl, mock, _ := newTestController(t)
	mock.QueryStatus = http.StatusInternalServerError

	msg, err := ctrl.SendQuestion(context.Background(), "boom")
	if err != nil {
		t.Fatalf("SendQuestion() error = %v, want nil with an error-role message", err)
	}
	if msg.Role != RoleError {
		t.Errorf("fallback role = %q, want %q", msg.Role, RoleError)
	}
	if !strings.HasPrefix(msg.Text, "Error: ") {
		t.Errorf("fallback text = %q, want an Error: prefix", msg.Text)
	}

	sid := ctrl.Active()
	msgs := ctrl.Log().Load(sid)
	if len(msgs) != 2 {
		t.Fatalf("log has %d messages, want user + error", len(msgs))
	}
	if msgs[1].Role != RoleError {
		t.Errorf("log[1].Role = %q, want %q", msgs[1].Role, RoleError)
	}

	// A failed exchange does not count and leaves the session idle.
	if got := ctrl.Counter().Today(); got != 0 {
		t.Errorf("Counter().Today() = %d, want 0", got)
	}
	if ctrl.Busy(sid) {
		t.Error("Busy() = true after the exchange finished")
	}

	// The session recovers: the next question goes through normally.
	mock.QueryStatus = 0
	answer, err := ctrl.SendQuestion(context.Background(), "again?")
	if err != nil {
		t.Fatalf("SendQuestion() after failure error = %v", err)
	}
	if answer.Role != RoleAssistant {
		t.Errorf("recovery role = %q, want %q", answer.Role, RoleAssistant)
	}
}

func TestController_AttachAdoptsServerSessionID(t *testing.T) {
	ctrl, mock, _ := newTestController(t)
	mock.UploadSessionID = "abc123"

	// Start a conversation under a client placeholder id.
	if _, err := ctrl.SendQuestion(context.Background(), "hello"); err != nil {
		t.Fatalf("SendQuestion() error = %v", err)
	}
	placeholder := ctrl.Active()

	confirm, err := ctrl.AttachFile(context.Background(), "report.pdf", strings.NewReader("pdf bytes"))
	if err != nil {
		t.Fatalf("AttachFile() error = %v", err)
	}
	if confirm.Role != RoleSystem {
		t.Errorf("confirmation role = %q, want %q", confirm.Role, RoleSystem)
	}

	// The server-issued id replaced the placeholder everywhere.
	if got := ctrl.Active(); got != "abc123" {
		t.Errorf("Active() = %q, want adopted id %q", got, "abc123")
	}
	if _, ok := ctrl.Registry().Get(placeholder); ok {
		t.Error("placeholder session still registered after adoption")
	}
	s, ok := ctrl.Registry().Get("abc123")
	if !ok {
		t.Fatal("adopted session not registered")
	}
	if s.AttachedFileName != "report.pdf" {
		t.Errorf("AttachedFileName = %q, want %q", s.AttachedFileName, "report.pdf")
	}

	// The earlier exchange moved with the conversation.
	msgs := ctrl.Log().Load("abc123")
	if len(msgs) != 3 {
		t.Fatalf("log has %d messages, want question + answer + confirmation", len(msgs))
	}
	if msgs[0].Text != "hello" {
		t.Errorf("log[0].Text = %q, want migrated question", msgs[0].Text)
	}
	if len(ctrl.Log().Load(placeholder)) != 0 {
		t.Error("placeholder log still present after adoption")
	}

	// Later questions are scoped to the adopted session.
	if _, err := ctrl.SendQuestion(context.Background(), "what does it say?"); err != nil {
		t.Fatalf("SendQuestion() error = %v", err)
	}
	last := mock.QueryCalls[len(mock.QueryCalls)-1]
	if last.SessionID != "abc123" {
		t.Errorf("query session_id = %q, want %q after attach", last.SessionID, "abc123")
	}
}

func TestController_AttachFailureAppendsErrorMessage(t *testing.T) {
	ctrl, mock, _ := newTestController(t)
	mock.UploadStatus = http.StatusInternalServerError

	msg, err := ctrl.AttachFile(context.Background(), "report.pdf", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("AttachFile() error = %v, want nil with an error-role message", err)
	}
	if msg.Role != RoleError {
		t.Errorf("fallback role = %q, want %q", msg.Role, RoleError)
	}

	// The session keeps its placeholder id and no attachment is recorded.
	sid := ctrl.Active()
	if s, _ := ctrl.Registry().Get(sid); s.AttachedFileName != "" {
		t.Errorf("AttachedFileName = %q, want empty after failed attach", s.AttachedFileName)
	}
}

func TestController_SwitchSession(t *testing.T) {
	ctrl, _, store := newTestController(t)

	first, err := ctrl.NewChat()
	if err != nil {
		t.Fatalf("NewChat() error = %v", err)
	}
	if _, err := ctrl.SendQuestion(context.Background(), "first question"); err != nil {
		t.Fatalf("SendQuestion() error = %v", err)
	}

	second, err := ctrl.NewChat()
	if err != nil {
		t.Fatalf("NewChat() error = %v", err)
	}
	if got := ctrl.Active(); got != second {
		t.Errorf("Active() = %q, want %q", got, second)
	}

	msgs := ctrl.SwitchSession(first)
	if got := ctrl.Active(); got != first {
		t.Errorf("Active() after switch = %q, want %q", got, first)
	}
	if len(msgs) != 2 {
		t.Errorf("SwitchSession() returned %d messages, want 2", len(msgs))
	}

	// The active session survives a restart.
	ctrl2 := NewController(store, ctrl.client)
	if got := ctrl2.Active(); got != first {
		t.Errorf("Active() after restart = %q, want %q", got, first)
	}
}

func TestController_ClearMessages(t *testing.T) {
	ctrl, mock, _ := newTestController(t)
	mock.UploadSessionID = "abc123"

	if _, err := ctrl.AttachFile(context.Background(), "report.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("AttachFile() error = %v", err)
	}
	if _, err := ctrl.SendQuestion(context.Background(), "what is in it?"); err != nil {
		t.Fatalf("SendQuestion() error = %v", err)
	}

	if err := ctrl.ClearMessages(); err != nil {
		t.Fatalf("ClearMessages() error = %v", err)
	}

	sid := ctrl.Active()
	if got := ctrl.Log().Load(sid); len(got) != 0 {
		t.Errorf("log has %d messages after clear, want 0", len(got))
	}
	// The session itself survives, with the preview naming the attachment.
	s, ok := ctrl.Registry().Get(sid)
	if !ok {
		t.Fatal("session gone after ClearMessages()")
	}
	if s.AttachedFileName != "report.pdf" {
		t.Errorf("AttachedFileName = %q, want kept", s.AttachedFileName)
	}
	if want := "Attached file: report.pdf"; s.LastMessagePreview != want {
		t.Errorf("preview = %q, want %q", s.LastMessagePreview, want)
	}
}

func TestController_DeleteSession(t *testing.T) {
	ctrl, mock, store := newTestController(t)
	mock.UploadSessionID = "abc123"

	if _, err := ctrl.AttachFile(context.Background(), "report.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("AttachFile() error = %v", err)
	}
	if _, err := ctrl.SendQuestion(context.Background(), "hello"); err != nil {
		t.Fatalf("SendQuestion() error = %v", err)
	}

	if err := ctrl.DeleteSession(context.Background(), "abc123"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}

	if _, ok := ctrl.Registry().Get("abc123"); ok {
		t.Error("session still registered after delete")
	}
	if _, ok := store.Get(messagesKey("abc123")); ok {
		t.Error("message log still stored after delete")
	}
	if got := ctrl.Active(); got != "" {
		t.Errorf("Active() = %q after deleting the active session, want empty", got)
	}
	// The server-side temp files were cleaned up too.
	if len(mock.TempDeletes) != 1 || mock.TempDeletes[0] != "abc123/report.pdf" {
		t.Errorf("mock saw temp deletes %v, want [abc123/report.pdf]", mock.TempDeletes)
	}
}

func TestController_BusyWhileInFlight(t *testing.T) {
	ctrl, mock, _ := newTestController(t)
	mock.QueryStarted = make(chan struct{}, 1)
	mock.QueryProceed = make(chan struct{})

	sid, err := ctrl.NewChat()
	if err != nil {
		t.Fatalf("NewChat() error = %v", err)
	}

	done := sendAsync(t, ctrl, mock, "slow question")

	if !ctrl.Busy(sid) {
		t.Error("Busy() = false while a question is in flight")
	}
	// A second send on the same session is rejected without a request.
	if _, err := ctrl.SendQuestion(context.Background(), "impatient"); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent SendQuestion() error = %v, want ErrBusy", err)
	}

	close(mock.QueryProceed)
	res := <-done
	if res.err != nil {
		t.Fatalf("SendQuestion() error = %v", res.err)
	}

	if ctrl.Busy(sid) {
		t.Error("Busy() = true after the exchange finished")
	}
	// Only the first question made it out, and only its exchange is logged.
	if len(mock.QueryCalls) != 1 {
		t.Errorf("mock saw %d query calls, want 1", len(mock.QueryCalls))
	}
	if got := ctrl.Log().Load(sid); len(got) != 2 {
		t.Errorf("log has %d messages, want 2", len(got))
	}
}

func TestController_ResponseRoutesToOriginatingSession(t *testing.T) {
	ctrl, mock, _ := newTestController(t)
	mock.QueryStarted = make(chan struct{}, 1)
	mock.QueryProceed = make(chan struct{})

	first, err := ctrl.NewChat()
	if err != nil {
		t.Fatalf("NewChat() error = %v", err)
	}

	done := sendAsync(t, ctrl, mock, "question for the first chat")

	// The user moves on to a fresh chat while the answer is pending.
	second, err := ctrl.NewChat()
	if err != nil {
		t.Fatalf("NewChat() error = %v", err)
	}
	// The new session is not gated by the first one's in-flight question.
	if ctrl.Busy(second) {
		t.Error("Busy() = true for a session with nothing in flight")
	}

	close(mock.QueryProceed)
	res := <-done
	if res.err != nil {
		t.Fatalf("SendQuestion() error = %v", res.err)
	}
	if res.msg.Role != RoleAssistant {
		t.Errorf("result role = %q, want %q", res.msg.Role, RoleAssistant)
	}

	// The answer landed in the session that asked, not the active one.
	firstLog := ctrl.Log().Load(first)
	if len(firstLog) != 2 {
		t.Fatalf("originating log has %d messages, want 2", len(firstLog))
	}
	if firstLog[1].Role != RoleAssistant || firstLog[1].Text != "mock answer" {
		t.Errorf("originating log[1] = %+v, want the answer", firstLog[1])
	}
	if got := ctrl.Log().Load(second); len(got) != 0 {
		t.Errorf("active session's log has %d messages, want 0", len(got))
	}
	if got := ctrl.Active(); got != second {
		t.Errorf("Active() = %q, want %q", got, second)
	}
}

func TestController_StaleResponseForDeletedSessionDropped(t *testing.T) {
	ctrl, mock, _ := newTestController(t)
	mock.QueryStarted = make(chan struct{}, 1)
	mock.QueryProceed = make(chan struct{})

	sid, err := ctrl.NewChat()
	if err != nil {
		t.Fatalf("NewChat() error = %v", err)
	}

	done := sendAsync(t, ctrl, mock, "soon to be orphaned")

	if err := ctrl.DeleteSession(context.Background(), sid); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}

	close(mock.QueryProceed)
	res := <-done
	if !errors.Is(res.err, ErrSessionDeleted) {
		t.Errorf("SendQuestion() error = %v, want ErrSessionDeleted", res.err)
	}

	// The late answer did not resurrect the deleted conversation.
	if got := ctrl.Log().Load(sid); len(got) != 0 {
		t.Errorf("deleted session's log has %d messages, want 0", len(got))
	}
	if _, ok := ctrl.Registry().Get(sid); ok {
		t.Error("deleted session reappeared in the registry")
	}
}

func TestController_TimeoutYieldsErrorMessage(t *testing.T) {
	mock := testutil.NewMockAPI(t)
	mock.QueryProceed = make(chan struct{})
	t.Cleanup(func() { close(mock.QueryProceed) })

	store := testutil.NewMemStore()
	ctrl := NewController(store, NewClient(mock.URL(), 50*time.Millisecond))

	msg, err := ctrl.SendQuestion(context.Background(), "too slow")
	if err != nil {
		t.Fatalf("SendQuestion() error = %v, want nil with an error-role message", err)
	}
	if msg.Role != RoleError {
		t.Errorf("fallback role = %q, want %q", msg.Role, RoleError)
	}
	if !strings.HasPrefix(msg.Text, "Error: ") {
		t.Errorf("fallback text = %q, want an Error: prefix", msg.Text)
	}

	sid := ctrl.Active()
	msgs := ctrl.Log().Load(sid)
	if len(msgs) != 2 {
		t.Fatalf("log has %d messages, want user + error", len(msgs))
	}
	if ctrl.Busy(sid) {
		t.Error("Busy() = true after the timeout")
	}
}

func TestController_DeleteInactiveSessionKeepsActive(t *testing.T) {
	ctrl, _, _ := newTestController(t)

	first, err := ctrl.NewChat()
	if err != nil {
		t.Fatalf("NewChat() error = %v", err)
	}
	second, err := ctrl.NewChat()
	if err != nil {
		t.Fatalf("NewChat() error = %v", err)
	}

	if err := ctrl.DeleteSession(context.Background(), first); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if got := ctrl.Active(); got != second {
		t.Errorf("Active() = %q, want untouched %q", got, second)
	}
}
