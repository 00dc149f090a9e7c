package notification

import (
	"fmt"

	"github.com/google/uuid"
)

func ChallengeReceived(opponentID, challengeID uuid.UUID, creatorName string) *CreateNotificationRequest {
	return &CreateNotificationRequest{
		UserID:    opponentID,
		Type:      TypeChallenge,
		Title:     "Nowe wyzwanie!",
		Message:   fmt.Sprintf("%s wyzwał Cię na pojedynek rowerowy!", creatorName),
		RelatedID: &challengeID,
		Data:      map[string]any{"challenge_id": challengeID.String(), "username": creatorName},
	}
}

func ChallengeAnswered(creatorID, challengeID uuid.UUID, opponentName string, accepted bool) *CreateNotificationRequest {
	msg := fmt.Sprintf("%s odrzucił Twoje wyzwanie.", opponentName)
	if accepted {
		msg = fmt.Sprintf("%s przyjął Twoje wyzwanie. Do dzieła!", opponentName)
	}
	return &CreateNotificationRequest{
		UserID:    creatorID,
		Type:      TypeChallengeResponse,
		Title:     "Odpowiedź na wyzwanie",
		Message:   msg,
		RelatedID: &challengeID,
		Data:      map[string]any{"challenge_id": challengeID.String(), "accepted": accepted},
	}
}

// ChallengeFinished tells one participant how the challenge ended. winnerID
// is nil on a tie.
func ChallengeFinished(userID, challengeID uuid.UUID, winnerID *uuid.UUID, ownRides, otherRides int) *CreateNotificationRequest {
	var msg string
	switch {
	case winnerID == nil:
		msg = fmt.Sprintf("Remis! Obaj macie po %d przejazdów.", ownRides)
	case *winnerID == userID:
		msg = fmt.Sprintf("Wygrałeś wyzwanie %d do %d!", ownRides, otherRides)
	default:
		msg = fmt.Sprintf("Przegrałeś wyzwanie %d do %d. Następnym razem!", ownRides, otherRides)
	}
	return &CreateNotificationRequest{
		UserID:    userID,
		Type:      TypeChallengeResult,
		Title:     "Wyzwanie zakończone",
		Message:   msg,
		RelatedID: &challengeID,
		Data: map[string]any{
			"challenge_id": challengeID.String(),
			"own_rides":    ownRides,
			"other_rides":  otherRides,
		},
	}
}

func AchievementUnlocked(userID, achievementID uuid.UUID, name string) *CreateNotificationRequest {
	return &CreateNotificationRequest{
		UserID:    userID,
		Type:      TypeAchievement,
		Title:     "Nowe osiągnięcie!",
		Message:   fmt.Sprintf("Odblokowałeś osiągnięcie \"%s\".", name),
		RelatedID: &achievementID,
		Data:      map[string]any{"achievement_id": achievementID.String(), "name": name},
	}
}

func RideReviewed(userID, rideID uuid.UUID, approved bool, points int) *CreateNotificationRequest {
	msg := "Twój przejazd został odrzucony."
	if approved {
		msg = fmt.Sprintf("Twój przejazd został zweryfikowany. +%d pkt", points)
	}
	return &CreateNotificationRequest{
		UserID:    userID,
		Type:      TypeRideVerified,
		Title:     "Weryfikacja przejazdu",
		Message:   msg,
		RelatedID: &rideID,
		Data:      map[string]any{"ride_id": rideID.String(), "approved": approved, "points": points},
	}
}
