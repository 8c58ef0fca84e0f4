package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/polly/internal/credentials"
	"github.com/wolfeidau/polly/internal/gateway"
	"github.com/wolfeidau/polly/internal/models"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   string
}

func setup(t *testing.T, status int, respBody string) (*Client, *[]recorded) {
	t.Helper()

	var reqs []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqs = append(reqs, recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			body:   string(body),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)

	store := credentials.NewMemoryStore()
	require.NoError(t, store.Save("A1", "R1"))

	gw, err := gateway.New(srv.URL, srv.Client(), store)
	require.NoError(t, err)

	return New(gw), &reqs
}

func TestUsers_Login(t *testing.T) {
	c, reqs := setup(t, http.StatusOK, `{"access":"A9","refresh":"R9"}`)

	pair, err := c.Users.Login(context.Background(), models.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, &models.TokenPair{Access: "A9", Refresh: "R9"}, pair)

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/users/login/", got.path)
	assert.Empty(t, got.auth, "login is anonymous")
	assert.JSONEq(t, `{"username":"alice","password":"pw"}`, got.body)
}

func TestUsers_Register(t *testing.T) {
	c, reqs := setup(t, http.StatusCreated, `{"id":7,"username":"bob","email":"bob@example.com","roles":"user","is_active":true,"date_joined":"2025-01-02T03:04:05Z"}`)

	user, err := c.Users.Register(context.Background(), models.Registration{
		Username:  "bob",
		Email:     "bob@example.com",
		Password:  "pw",
		Password2: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.True(t, user.Active)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), user.JoinedAt.UTC())

	got := (*reqs)[0]
	assert.Equal(t, "/api/users/register/", got.path)
	assert.JSONEq(t, `{"username":"bob","email":"bob@example.com","password":"pw","password2":"pw"}`, got.body)
}

func TestUsers_MeAndUpdate(t *testing.T) {
	c, reqs := setup(t, http.StatusOK, `{"id":1,"username":"alice","email":"a@example.com","roles":"admin"}`)

	me, err := c.Users.Me(context.Background())
	require.NoError(t, err)
	assert.True(t, me.IsAdmin())

	_, err = c.Users.UpdateMe(context.Background(), models.ProfileUpdate{Email: "new@example.com"})
	require.NoError(t, err)

	require.Len(t, *reqs, 2)
	assert.Equal(t, "Bearer A1", (*reqs)[0].auth)
	assert.Equal(t, http.MethodPatch, (*reqs)[1].method)
	assert.Equal(t, "/api/users/me/", (*reqs)[1].path)
	assert.JSONEq(t, `{"email":"new@example.com"}`, (*reqs)[1].body)
}

func TestPolls_ListCategoryMapping(t *testing.T) {
	tests := []struct {
		category string
		query    string
	}{
		{"", ""},
		{CategoryAll, ""},
		{"Technology", "category=TECH"},
		{"Sports", "category=SPRT"},
		{"POL", "category=POL"},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			c, reqs := setup(t, http.StatusOK, `[]`)

			polls, err := c.Polls.List(context.Background(), tt.category)
			require.NoError(t, err)
			assert.Empty(t, polls)
			assert.Equal(t, "/api/polls/", (*reqs)[0].path)
			assert.Equal(t, tt.query, (*reqs)[0].query)
		})
	}
}

func TestPolls_Vote(t *testing.T) {
	c, reqs := setup(t, http.StatusOK, `{"detail":"Vote recorded."}`)

	msg, err := c.Polls.Vote(context.Background(), 3, 11)
	require.NoError(t, err)
	assert.Equal(t, "Vote recorded.", msg)
	assert.Equal(t, "/api/polls/3/vote/", (*reqs)[0].path)
	assert.JSONEq(t, `{"option":11}`, (*reqs)[0].body)
}

func TestPolls_VoteRejected(t *testing.T) {
	c, _ := setup(t, http.StatusBadRequest, `{"detail":"This poll has expired."}`)

	_, err := c.Polls.Vote(context.Background(), 3, 11)
	require.Error(t, err)

	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "This poll has expired.", apiErr.Message("Vote failed"))
}

func TestPolls_Results(t *testing.T) {
	c, _ := setup(t, http.StatusOK, `{"id":3,"question":"Tabs?","options":[{"id":1,"text":"yes","votes":3,"percentage":75},{"id":2,"text":"no","votes":1,"percentage":25}]}`)

	res, err := c.Polls.Results(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, res.Options, 2)
	assert.Equal(t, 75.0, res.Options[0].Percentage)
}

func TestAdmin_DeleteEndpoints(t *testing.T) {
	c, reqs := setup(t, http.StatusNoContent, ``)
	ctx := context.Background()

	require.NoError(t, c.Admin.DeleteUser(ctx, 1))
	require.NoError(t, c.Admin.DeletePoll(ctx, 2))
	require.NoError(t, c.Admin.DeleteVote(ctx, 3))
	require.NoError(t, c.Polls.DeleteMine(ctx, 4))

	paths := make([]string, 0, len(*reqs))
	for _, r := range *reqs {
		assert.Equal(t, http.MethodDelete, r.method)
		paths = append(paths, r.path)
	}
	assert.Equal(t, []string{
		"/api/admin/users/1/",
		"/api/admin/polls/2/",
		"/api/admin/votes/3/",
		"/api/polls/user-polls/4/",
	}, paths)
}

func TestAdmin_UpdatePoll(t *testing.T) {
	c, reqs := setup(t, http.StatusOK, `{"id":2,"question":"Q","creator":1,"category":"TECH","options":[{"id":1,"text":"a"}]}`)

	poll, err := c.Admin.UpdatePoll(context.Background(), 2, models.AdminPoll{
		Question: "Q",
		Creator:  1,
		Category: "TECH",
		Options:  []models.OptionText{{Text: "a"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), poll.ID)

	got := (*reqs)[0]
	assert.Equal(t, http.MethodPut, got.method)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(got.body), &body))
	assert.Equal(t, "Q", body["question"])
}
