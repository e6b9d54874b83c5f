package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserID(t *testing.T) {
	userID, err := UserID(map[string]interface{}{"userId": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", userID)

	_, err = UserID(map[string]interface{}{})
	assert.Error(t, err)

	_, err = UserID(map[string]interface{}{"userId": ""})
	assert.Error(t, err)

	_, err = UserID(map[string]interface{}{"userId": 42})
	assert.Error(t, err)
}

func TestStringArg(t *testing.T) {
	args := map[string]interface{}{"query": "standup", "pageSize": float64(10)}

	assert.Equal(t, "standup", StringArg(args, "query"))
	assert.Equal(t, "", StringArg(args, "missing"))
	assert.Equal(t, "", StringArg(args, "pageSize"))
}

func TestIntArg(t *testing.T) {
	args := map[string]interface{}{
		"fromJSON": float64(25),
		"asInt":    7,
		"asString": "12",
	}

	assert.Equal(t, int64(25), IntArg(args, "fromJSON", 1000))
	assert.Equal(t, int64(7), IntArg(args, "asInt", 1000))
	assert.Equal(t, int64(1000), IntArg(args, "asString", 1000))
	assert.Equal(t, int64(1000), IntArg(args, "missing", 1000))
}

func TestBoolArg(t *testing.T) {
	args := map[string]interface{}{"isOnlineMeeting": true, "other": "yes"}

	assert.True(t, BoolArg(args, "isOnlineMeeting"))
	assert.False(t, BoolArg(args, "other"))
	assert.False(t, BoolArg(args, "missing"))
}

func TestEmailList(t *testing.T) {
	assert.Nil(t, EmailList(""))
	assert.Equal(t, []string{"a@example.com"}, EmailList("a@example.com"))
	assert.Equal(t,
		[]string{"a@example.com", "b@example.com"},
		EmailList(" a@example.com , b@example.com "),
	)
	assert.Equal(t, []string{"a@example.com"}, EmailList("a@example.com,,"))
}
