package audit

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	id := uuid.MustParse("3b7e9c2a-1f04-4a7e-9d3c-5b6a8e2f1c00")
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	records := []Record{
		{ID: id, ActorID: 1, Action: ActionGrant, TargetID: 5, AffectedKeys: []string{"ipr_review", "ipr_view"}, At: at},
		{ID: id, ActorID: 1, Action: ActionReplace, TargetID: 5, AffectedKeys: []string{}, At: at.Add(time.Hour)},
	}

	data, err := WriteCSV(records)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,occurred_at,actor_id,action,target_id,affected_keys", lines[0])
	assert.Equal(t, id.String()+",2026-03-01T09:30:00Z,1,GRANT,5,ipr_review ipr_view", lines[1])
	assert.Equal(t, id.String()+",2026-03-01T10:30:00Z,1,REPLACE,5,", lines[2])
}

func TestWriteCSVEmpty(t *testing.T) {
	data, err := WriteCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, "id,occurred_at,actor_id,action,target_id,affected_keys\n", string(data))
}
