package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
)

func TestRegisterAndLogin(t *testing.T) {
	e := startTestServer(t)

	created := registerUser(t, e, "alice")
	if created.Token == "" || created.User.Username != "alice" {
		t.Fatalf("unexpected register response: %+v", created)
	}

	// Duplicate registration conflicts.
	var errResp ErrorResponse
	if status := doJSON(t, e, "POST", "/api/register", "", RegisterRequest{Username: "alice", Password: "password123"}, &errResp); status != http.StatusConflict {
		t.Fatalf("duplicate register: status %d", status)
	}

	var logged AuthResponse
	if status := doJSON(t, e, "POST", "/api/login", "", LoginRequest{Username: "alice", Password: "password123"}, &logged); status != http.StatusOK {
		t.Fatalf("login: status %d", status)
	}
	if logged.User.ID != created.User.ID || logged.Token == "" {
		t.Fatalf("unexpected login response: %+v", logged)
	}

	if status := doJSON(t, e, "POST", "/api/login", "", LoginRequest{Username: "alice", Password: "wrong"}, nil); status != http.StatusUnauthorized {
		t.Fatalf("bad password login: status %d", status)
	}
}

func TestRegisterValidation(t *testing.T) {
	e := startTestServer(t)

	// Username too short.
	if status := doJSON(t, e, "POST", "/api/register", "", RegisterRequest{Username: "ab", Password: "password123"}, nil); status != http.StatusBadRequest {
		t.Fatalf("short username: status %d", status)
	}
	// Password too short.
	if status := doJSON(t, e, "POST", "/api/register", "", RegisterRequest{Username: "alice", Password: "12345"}, nil); status != http.StatusBadRequest {
		t.Fatalf("short password: status %d", status)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := startTestServer(t)

	if status := doJSON(t, e, "GET", "/api/users", "", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d", status)
	}
	if status := doJSON(t, e, "GET", "/api/users", "not-a-jwt", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("garbage token: status %d", status)
	}
}

func TestListUsersExcludesSelfAndCountsUnread(t *testing.T) {
	e := startTestServer(t)

	alice := registerUser(t, e, "alice")
	bob := registerUser(t, e, "bob")

	// Two messages from bob to alice, still unread.
	for i := 0; i < 2; i++ {
		if _, err := e.st.CreateMessage(context.Background(), messageFrom(bob.User.ID, alice.User.ID, "ping")); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	var users []UserResponse
	if status := doJSON(t, e, "GET", "/api/users", alice.Token, nil, &users); status != http.StatusOK {
		t.Fatalf("list users: status %d", status)
	}
	if len(users) != 1 || users[0].ID != bob.User.ID {
		t.Fatalf("alice should see exactly bob, got %+v", users)
	}
	if users[0].UnreadCount != 2 {
		t.Fatalf("expected 2 unread from bob, got %d", users[0].UnreadCount)
	}
}

func TestConversationMarksMessagesRead(t *testing.T) {
	e := startTestServer(t)

	alice := registerUser(t, e, "alice")
	bob := registerUser(t, e, "bob")

	if _, err := e.st.CreateMessage(context.Background(), messageFrom(bob.User.ID, alice.User.ID, "hello")); err != nil {
		t.Fatalf("seed message: %v", err)
	}

	path := fmt.Sprintf("/api/messages/%d", bob.User.ID)
	var conv []map[string]any
	if status := doJSON(t, e, "GET", path, alice.Token, nil, &conv); status != http.StatusOK {
		t.Fatalf("get conversation: status %d", status)
	}
	if len(conv) != 1 {
		t.Fatalf("expected one message, got %+v", conv)
	}

	// Opening the conversation resets the unread counter.
	counts, err := e.st.UnreadCounts(context.Background(), alice.User.ID)
	if err != nil {
		t.Fatalf("unread counts: %v", err)
	}
	if counts[bob.User.ID] != 0 {
		t.Fatalf("conversation fetch should mark messages read, got %d unread", counts[bob.User.ID])
	}
}

func TestGroupEndpoints(t *testing.T) {
	e := startTestServer(t)

	alice := registerUser(t, e, "alice")
	bob := registerUser(t, e, "bob")
	eve := registerUser(t, e, "eve")

	var group GroupResponse
	if status := doJSON(t, e, "POST", "/api/groups", alice.Token, CreateGroupRequest{Name: "team"}, &group); status != http.StatusCreated {
		t.Fatalf("create group: status %d", status)
	}
	if group.CreatedBy != alice.User.ID {
		t.Fatalf("unexpected group: %+v", group)
	}

	membersPath := fmt.Sprintf("/api/groups/%d/members", group.ID)

	// Only admins may add members.
	if status := doJSON(t, e, "POST", membersPath, bob.Token, AddMemberRequest{UserID: eve.User.ID}, nil); status != http.StatusForbidden {
		t.Fatalf("non-admin add member: status %d", status)
	}
	if status := doJSON(t, e, "POST", membersPath, alice.Token, AddMemberRequest{UserID: bob.User.ID}, nil); status != http.StatusNoContent {
		t.Fatalf("admin add member: status %d", status)
	}

	// Membership gates the member list.
	var members []GroupMemberResponse
	if status := doJSON(t, e, "GET", membersPath, eve.Token, nil, nil); status != http.StatusForbidden {
		t.Fatalf("non-member list members: status %d", status)
	}
	if status := doJSON(t, e, "GET", membersPath, bob.Token, nil, &members); status != http.StatusOK {
		t.Fatalf("member list members: status %d", status)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %+v", members)
	}

	var groups []GroupResponse
	if status := doJSON(t, e, "GET", "/api/groups", bob.Token, nil, &groups); status != http.StatusOK {
		t.Fatalf("list groups: status %d", status)
	}
	if len(groups) != 1 || groups[0].ID != group.ID {
		t.Fatalf("bob should see the team group, got %+v", groups)
	}

	// A member may leave; removing someone else requires admin.
	leavePath := fmt.Sprintf("/api/groups/%d/members/%d", group.ID, alice.User.ID)
	if status := doJSON(t, e, "DELETE", leavePath, bob.Token, nil, nil); status != http.StatusForbidden {
		t.Fatalf("member removing admin: status %d", status)
	}
	selfPath := fmt.Sprintf("/api/groups/%d/members/%d", group.ID, bob.User.ID)
	if status := doJSON(t, e, "DELETE", selfPath, bob.Token, nil, nil); status != http.StatusNoContent {
		t.Fatalf("member leaving: status %d", status)
	}
}

func TestUploadAndServeFile(t *testing.T) {
	e := startTestServer(t)

	alice := registerUser(t, e, "alice")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "note.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.WriteString(part, "attachment body"); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	writer.Close()

	req, err := http.NewRequest("POST", e.ts.URL+"/api/upload", &buf)
	if err != nil {
		t.Fatalf("build upload request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+alice.Token)

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload: status %d, body %s", resp.StatusCode, raw)
	}

	var uploaded UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if !strings.HasPrefix(uploaded.URL, "/uploads/") {
		t.Fatalf("unexpected upload url: %s", uploaded.URL)
	}

	// The issued URL is immediately servable.
	fileResp, err := e.ts.Client().Get(e.ts.URL + uploaded.URL)
	if err != nil {
		t.Fatalf("fetch uploaded file: %v", err)
	}
	defer fileResp.Body.Close()

	body, _ := io.ReadAll(fileResp.Body)
	if fileResp.StatusCode != http.StatusOK || string(body) != "attachment body" {
		t.Fatalf("uploaded file not served back: status %d, body %q", fileResp.StatusCode, body)
	}
}
