package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/FranMor97/Book-Server/internal/auth"
	"github.com/FranMor97/Book-Server/internal/httpx"
	"github.com/FranMor97/Book-Server/internal/middleware"
	"github.com/FranMor97/Book-Server/internal/service"
	"github.com/FranMor97/Book-Server/internal/testutil"
	"github.com/gofiber/fiber/v2"
)

type apiFixture struct {
	app  *fiber.App
	gate *auth.Gate
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	h := testutil.NewTestHelper(t)
	users := testutil.NewMemoryUserRepository(
		h.CreateTestUser(1, "Ana", "Garcia"),
		h.CreateTestUser(2, "Luis", "Perez"),
	)
	messages := testutil.NewMemoryMessageRepository()
	groups := testutil.NewMemoryGroupRepository(messages)
	notifier := service.NewGroupNotifier(messages, nil, service.NewUserDirectory(users, nil, nil), nil)
	notifier.SetBroadcaster(testutil.NewRecordingBroadcaster())
	svc := service.NewReadingGroupService(groups, messages, testutil.NewMemoryBookRepository(7), notifier, nil, nil, 0)

	gate := auth.NewGate("test-secret-key-for-testing-only")
	app := fiber.New()
	api := app.Group("/api", middleware.AuthRequired(gate))
	NewReadingGroupHandler(svc, nil).Register(api)
	return &apiFixture{app: app, gate: gate}
}

func (f *apiFixture) do(t *testing.T, userID uint, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, err := f.gate.Issue(userID, "client", time.Hour)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func (f *apiFixture) createGroup(t *testing.T) uint {
	t.Helper()
	status, body := f.do(t, 1, "POST", "/api/groups", `{"name":"Dune readers","bookId":7}`)
	if status != fiber.StatusCreated {
		t.Fatalf("create status = %d: %s", status, body)
	}
	var group struct {
		ID uint `json:"id"`
	}
	json.Unmarshal(body, &group)
	return group.ID
}

func errorCodeOf(t *testing.T, body []byte) string {
	t.Helper()
	var resp httpx.ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("not an error response: %s", body)
	}
	return resp.Code
}

func TestCreateGroupEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name   string
		userID uint
		body   string
		status int
		code   string
	}{
		{"Created", 1, `{"name":"Dune","bookId":7,"isPrivate":true,"readingGoal":{"pagesPerDay":20}}`, fiber.StatusCreated, ""},
		{"No token", 0, `{"name":"Dune","bookId":7}`, fiber.StatusUnauthorized, "missing_access_token"},
		{"Missing name", 1, `{"bookId":7}`, fiber.StatusBadRequest, "validation_failed"},
		{"Missing book", 1, `{"name":"Dune"}`, fiber.StatusBadRequest, "validation_failed"},
		{"Unknown book", 1, `{"name":"Dune","bookId":99}`, fiber.StatusNotFound, "not_found"},
		{"Broken JSON", 1, `{"name":`, fiber.StatusBadRequest, "invalid_body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(t, tt.userID, "POST", "/api/groups", tt.body)
			if status != tt.status {
				t.Fatalf("status = %d, want %d: %s", status, tt.status, body)
			}
			if tt.code != "" && errorCodeOf(t, body) != tt.code {
				t.Errorf("code = %q, want %q", errorCodeOf(t, body), tt.code)
			}
		})
	}
}

func TestMembershipEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createGroup(t)
	base := "/api/groups/" + itoa(id)

	steps := []struct {
		name   string
		userID uint
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"Join", 2, "POST", base + "/join", "", fiber.StatusOK, ""},
		{"Join again", 2, "POST", base + "/join", "", fiber.StatusConflict, "conflict"},
		{"Progress", 2, "PATCH", base + "/progress", `{"currentPage":42}`, fiber.StatusOK, ""},
		{"Progress without page", 2, "PATCH", base + "/progress", `{}`, fiber.StatusBadRequest, "validation_failed"},
		{"Negative page", 2, "PATCH", base + "/progress", `{"currentPage":-3}`, fiber.StatusBadRequest, "validation_failed"},
		{"Unknown action", 1, "POST", base + "/members/2/role", `{"action":"ban"}`, fiber.StatusBadRequest, "validation_failed"},
		{"Member cannot promote", 2, "POST", base + "/members/1/role", `{"action":"demote"}`, fiber.StatusForbidden, "forbidden"},
		{"Sole admin cannot leave", 1, "DELETE", base + "/leave", "", fiber.StatusBadRequest, "invalid_state"},
		{"Promote", 1, "POST", base + "/members/2/role", `{"action":"promote"}`, fiber.StatusOK, ""},
		{"Settings", 2, "PATCH", base, `{"description":"Spice must flow"}`, fiber.StatusOK, ""},
		{"Post message", 2, "POST", base + "/messages", `{"text":"chapter 3!"}`, fiber.StatusCreated, ""},
		{"Messages", 1, "GET", base + "/messages?page=1&limit=5", "", fiber.StatusOK, ""},
		{"Creator leaves", 1, "DELETE", base + "/leave", "", fiber.StatusOK, ""},
		{"Outsider progress", 1, "PATCH", base + "/progress", `{"currentPage":1}`, fiber.StatusForbidden, "forbidden"},
		{"Missing group", 1, "GET", "/api/groups/999", "", fiber.StatusNotFound, "not_found"},
		{"Bad group id", 1, "GET", "/api/groups/abc", "", fiber.StatusBadRequest, "invalid_group_id"},
	}

	for _, st := range steps {
		status, body := f.do(t, st.userID, st.method, st.path, st.body)
		if status != st.status {
			t.Fatalf("%s: status = %d, want %d: %s", st.name, status, st.status, body)
		}
		if st.code != "" && errorCodeOf(t, body) != st.code {
			t.Errorf("%s: code = %q, want %q", st.name, errorCodeOf(t, body), st.code)
		}
	}

	status, body := f.do(t, 2, "GET", base, "")
	if status != fiber.StatusOK {
		t.Fatalf("get status = %d: %s", status, body)
	}
	var group struct {
		CreatorID   uint   `json:"creatorId"`
		Description string `json:"description"`
		Book        struct {
			Title string `json:"title"`
		} `json:"book"`
		Creator struct {
			FirstName string `json:"firstName"`
		} `json:"creator"`
		Members []struct {
			UserID uint `json:"userId"`
			User   struct {
				FirstName string `json:"firstName"`
			} `json:"user"`
		} `json:"members"`
	}
	json.Unmarshal(body, &group)
	if group.CreatorID != 2 || group.Description != "Spice must flow" {
		t.Errorf("unexpected group after leave: %+v", group)
	}
	if group.Book.Title != "Book 7" || group.Creator.FirstName != "Luis" {
		t.Errorf("group view lacks cards: %s", body)
	}
	if len(group.Members) != 1 || group.Members[0].UserID != 2 || group.Members[0].User.FirstName != "Luis" {
		t.Errorf("members lack cards: %s", body)
	}
}

func TestLeaveLastMemberEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createGroup(t)

	status, body := f.do(t, 1, "DELETE", "/api/groups/"+itoa(id)+"/leave", "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d: %s", status, body)
	}
	var result service.LeaveResult
	json.Unmarshal(body, &result)
	if !result.GroupDeleted {
		t.Error("group should be deleted")
	}
	if status, _ := f.do(t, 1, "GET", "/api/groups/"+itoa(id), ""); status != fiber.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", status)
	}
}

func TestSearchAndListEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	f.createGroup(t)

	status, body := f.do(t, 2, "GET", "/api/groups/search?q=dune", "")
	if status != fiber.StatusOK {
		t.Fatalf("search status = %d: %s", status, body)
	}
	var result service.GroupSearchResult
	json.Unmarshal(body, &result)
	if result.Total != 1 || len(result.Groups) != 1 {
		t.Errorf("unexpected search result: %s", body)
	}

	status, body = f.do(t, 2, "GET", "/api/groups", "")
	if status != fiber.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("list for non-member = %d %s, want empty array", status, body)
	}
}

func itoa(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}
