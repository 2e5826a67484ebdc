package visual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/journey-mapper/internal/bowtie"
	"github.com/sells-group/journey-mapper/internal/model"
	"github.com/sells-group/journey-mapper/internal/reconcile"
)

func TestNew_Defaults(t *testing.T) {
	m := New()
	assert.Equal(t, []bowtie.ID{bowtie.Educate, bowtie.Select}, m.Active())
	assert.Equal(t, bowtie.None, m.Highlighted())
	assert.Len(t, m.States(), bowtie.Count)
}

func TestNew_WithActive(t *testing.T) {
	m := New(WithActive(bowtie.Impact, "trap42"))
	assert.Equal(t, []bowtie.ID{bowtie.Impact}, m.Active())

	m = New(WithActive())
	assert.Equal(t, DefaultActive, m.Active())

	m = New(WithActive("bogus"))
	assert.Equal(t, DefaultActive, m.Active())
}

func TestToggle_TwiceRestoresActive(t *testing.T) {
	m := New()
	before := m.States()

	require.NoError(t, m.Toggle(bowtie.Activate))
	after := m.States()
	for id, s := range before {
		if id == bowtie.Activate {
			assert.NotEqual(t, s.Active, after[id].Active)
			continue
		}
		assert.Equal(t, s.Active, after[id].Active, "stage %s changed", id)
	}

	require.NoError(t, m.Toggle(bowtie.Activate))
	assert.Equal(t, before, m.States())
}

func TestToggle_EveryStageIsolated(t *testing.T) {
	for _, target := range bowtie.IDs() {
		m := New()
		before := m.States()
		require.NoError(t, m.Toggle(target))
		for id, s := range m.States() {
			if id != target {
				assert.Equal(t, before[id], s)
			}
		}
	}
}

func TestToggle_EmitsSelected(t *testing.T) {
	m := New()
	var got []bowtie.ID
	m.Subscribe(func(id bowtie.ID) {
		s, _ := m.State(id)
		assert.True(t, s.Active, "event fires after the flip")
		got = append(got, id)
	})

	require.NoError(t, m.Toggle(bowtie.Expand))
	assert.Equal(t, []bowtie.ID{bowtie.Expand}, got)
}

func TestToggle_UnknownStage(t *testing.T) {
	m := New()
	fired := false
	m.Subscribe(func(bowtie.ID) { fired = true })

	err := m.Toggle("trap7")
	require.Error(t, err)
	assert.False(t, fired)
	assert.Equal(t, DefaultActive, m.Active())
}

func TestSetEntityPosition_HighlightsExactlyMappedStage(t *testing.T) {
	m := New()
	mapping := model.StageMapping{"lead": bowtie.Educate}
	pos := reconcile.LocateEntity("lead", mapping)
	require.Equal(t, bowtie.Educate, pos)

	m.SetEntityPosition(pos)
	for id, s := range m.States() {
		assert.Equal(t, id == bowtie.Educate, s.Highlighted, "stage %s", id)
	}

	m.SetEntityPosition(bowtie.Expand)
	assert.Equal(t, bowtie.Expand, m.Highlighted())
	s, _ := m.State(bowtie.Educate)
	assert.False(t, s.Highlighted)

	m.SetEntityPosition(bowtie.None)
	assert.Equal(t, bowtie.None, m.Highlighted())
}

func TestSetEntityPosition_DoesNotTouchActive(t *testing.T) {
	m := New()
	m.SetEntityPosition(bowtie.Attract)
	assert.Equal(t, DefaultActive, m.Active())
}

func TestRender(t *testing.T) {
	m := New()
	m.SetEntityPosition(bowtie.Attract)
	m.SetInbound(map[bowtie.ID][]string{bowtie.Attract: {"Subscriber", "Lead"}})

	r := m.Render()
	require.Len(t, r, bowtie.Count)

	attract := r[0]
	assert.Equal(t, bowtie.Attract, attract.ID)
	assert.False(t, attract.Active)
	assert.False(t, attract.ConnectorsVisible)
	assert.Zero(t, attract.Lift)
	assert.True(t, attract.Emphasized)
	assert.Equal(t, ColorEmphasized, attract.Color)
	assert.True(t, attract.Marker)
	assert.Equal(t, []string{"Subscriber", "Lead"}, attract.Inbound)

	educate := r[1]
	assert.True(t, educate.ConnectorsVisible)
	assert.Equal(t, Lift, educate.Lift)
	assert.Equal(t, []string{"Interested", "Engaged"}, educate.Connectors)
	assert.False(t, educate.Marker)
	assert.Equal(t, ColorEmphasized, educate.Color)

	expand := r[5]
	assert.False(t, expand.Emphasized)
	assert.Equal(t, ColorMuted, expand.Color)
	assert.Empty(t, expand.Inbound)
	assert.NotNil(t, expand.Inbound)
}
