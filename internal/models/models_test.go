package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectedState_UncollectedCarriesNoData(t *testing.T) {
	state := Uncollected[EmotionalData]()

	raw, err := json.Marshal(state)
	require.NoError(t, err)
	assert.JSONEq(t, `{"collected":false}`, string(raw))

	_, ok := state.Data()
	assert.False(t, ok)
}

func TestCollectedState_DecodeDegradesMissingData(t *testing.T) {
	var state PhysicalState
	require.NoError(t, json.Unmarshal([]byte(`{"collected":true}`), &state))
	assert.False(t, state.IsCollected())

	// collected=false 时忽略 data
	require.NoError(t, json.Unmarshal([]byte(`{"collected":false,"data":{"latest":{"heartRate":80}}}`), &state))
	assert.False(t, state.IsCollected())
}

func TestCollectedState_CollectedRoundTrip(t *testing.T) {
	state := Collected(EmotionalData{
		Dominant:        EmotionHappy,
		DominantPercent: 65,
		History:         []DailyEmotion{{Date: "2026-10-14", Happy: 65, Calm: 20, Sad: 10, Anxious: 5}},
	})

	raw, err := json.Marshal(state)
	require.NoError(t, err)

	var decoded EmotionalState
	require.NoError(t, json.Unmarshal(raw, &decoded))
	data, ok := decoded.Data()
	require.True(t, ok)
	assert.Equal(t, "happy", data.Dominant)
	assert.Equal(t, 65, data.DominantPercent)
	require.Len(t, data.History, 1)
	assert.Equal(t, 5, data.History[0].Anxious)
}

func TestCollectedState_DataIsACopy(t *testing.T) {
	state := Collected(EmotionalData{History: []DailyEmotion{{Happy: 10}}})

	data, _ := state.Data()
	data.History[0].Happy = 99

	again, _ := state.Data()
	assert.Equal(t, 10, again.History[0].Happy)
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d := NewDate(2019, time.June, 1)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2019-06-01T00:00:00.000Z"`, string(raw))

	var back Date
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, d, back)
	assert.Equal(t, "2019-06-01", back.String())
}

func TestDate_AcceptsPlainDate(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2020-02-29"`), &d))
	assert.Equal(t, NewDate(2020, time.February, 29), d)

	require.Error(t, json.Unmarshal([]byte(`"yesterday"`), &d))
}

func TestDate_NullIsZero(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.True(t, d.IsZero())

	raw, err := json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}

func TestCalculateAge(t *testing.T) {
	now := time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 7, CalculateAge(NewDate(2019, time.June, 1), now))
	// 生日还没到
	assert.Equal(t, 6, CalculateAge(NewDate(2019, time.October, 16), now))
	// 当天生日
	assert.Equal(t, 7, CalculateAge(NewDate(2019, time.October, 15), now))
	assert.Equal(t, 0, CalculateAge(Date{}, now))
	assert.Equal(t, 0, CalculateAge(NewDate(2030, time.January, 1), now))
}

func TestDailyEmotion_Dominant(t *testing.T) {
	label, pct := DailyEmotion{Happy: 20, Calm: 30, Sad: 10, Anxious: 40}.Dominant()
	assert.Equal(t, EmotionAnxious, label)
	assert.Equal(t, 40, pct)

	// 并列时取靠前的情绪
	label, _ = DailyEmotion{Happy: 30, Calm: 30}.Dominant()
	assert.Equal(t, EmotionHappy, label)
}

func TestChildProfile_CloneIsDeep(t *testing.T) {
	child := ChildProfile{
		ID:          1,
		Name:        "Emma",
		Preferences: &Preferences{SleepHabits: "nap after lunch"},
		PhysicalState: Collected(PhysicalData{
			Latest: SensorReading{HeartRate: IntPtr(84)},
		}),
	}

	cp := child.Clone()
	cp.Preferences.SleepHabits = "none"

	assert.Equal(t, "nap after lunch", child.Preferences.SleepHabits)

	data, ok := cp.PhysicalState.Data()
	require.True(t, ok)
	*data.Latest.HeartRate = 120

	orig, _ := child.PhysicalState.Data()
	assert.Equal(t, 84, *orig.Latest.HeartRate)
}

func TestSensorReading_IsEmpty(t *testing.T) {
	assert.True(t, SensorReading{DeviceID: "ESP32_DEMO"}.IsEmpty())
	assert.False(t, SensorReading{Temperature: FloatPtr(36.5)}.IsEmpty())
}
