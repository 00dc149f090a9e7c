package notification

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringifyData(t *testing.T) {
	assert.Nil(t, stringifyData(nil))

	got := stringifyData(map[string]any{"points": 10, "approved": true, "id": "abc"})
	assert.Equal(t, map[string]string{"points": "10", "approved": "true", "id": "abc"}, got)
}

func TestBuildMessage_PerPlatform(t *testing.T) {
	data := map[string]string{"k": "v"}

	android := buildMessage(DeviceToken{Token: "a", Platform: "android"}, "t", "b", data)
	require.NotNil(t, android.Android)
	assert.Equal(t, "high", android.Android.Priority)
	assert.Nil(t, android.APNS)

	unknown := buildMessage(DeviceToken{Token: "u"}, "t", "b", data)
	assert.NotNil(t, unknown.Android)

	ios := buildMessage(DeviceToken{Token: "i", Platform: "ios"}, "t", "b", data)
	require.NotNil(t, ios.APNS)
	assert.Equal(t, "default", ios.APNS.Payload.Aps.Sound)

	web := buildMessage(DeviceToken{Token: "w", Platform: "web"}, "t", "b", data)
	require.NotNil(t, web.Webpush)
	assert.Equal(t, "t", web.Webpush.Notification.Title)
	assert.Equal(t, "w", web.Token)
	assert.Equal(t, data, web.Data)
}

func TestChallengeFinished(t *testing.T) {
	a, b, id := uuid.New(), uuid.New(), uuid.New()

	won := ChallengeFinished(a, id, &a, 5, 3)
	assert.Equal(t, TypeChallengeResult, won.Type)
	assert.Contains(t, won.Message, "Wygrałeś")

	lost := ChallengeFinished(b, id, &a, 3, 5)
	assert.Contains(t, lost.Message, "Przegrałeś")

	tie := ChallengeFinished(a, id, nil, 2, 2)
	assert.Contains(t, tie.Message, "Remis")
	require.NotNil(t, tie.RelatedID)
	assert.Equal(t, id, *tie.RelatedID)
}

func TestRideReviewed(t *testing.T) {
	user, ride := uuid.New(), uuid.New()

	ok := RideReviewed(user, ride, true, 10)
	assert.Equal(t, TypeRideVerified, ok.Type)
	assert.Contains(t, ok.Message, "+10")
	assert.Equal(t, true, ok.Data["approved"])

	rejected := RideReviewed(user, ride, false, 0)
	assert.Contains(t, rejected.Message, "odrzucony")
}

func TestChallengeMessages(t *testing.T) {
	creator, opponent, id := uuid.New(), uuid.New(), uuid.New()

	received := ChallengeReceived(opponent, id, "ola")
	assert.Equal(t, opponent, received.UserID)
	assert.Equal(t, TypeChallenge, received.Type)
	assert.Equal(t, "Nowe wyzwanie!", received.Title)

	accepted := ChallengeAnswered(creator, id, "ola", true)
	assert.Equal(t, TypeChallengeResponse, accepted.Type)
	assert.Contains(t, accepted.Message, "przyjął")

	unlocked := AchievementUnlocked(creator, id, "Tydzień w siodle")
	assert.Contains(t, unlocked.Message, "Tydzień w siodle")
}
