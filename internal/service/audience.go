package service

import (
	"fmt"
	"strings"

	"raidcall/internal/models"
	"raidcall/internal/notify"
	"raidcall/internal/repository"
)

// resolveAudience expands an audience descriptor into the users it currently
// names. Membership is read at call time, so a player who switched squads
// after the raid was created still lands in the right set.
func resolveAudience(users *repository.UserRepository, audience string) ([]models.User, error) {
	switch audience {
	case models.AudienceAllUsers:
		return users.All()
	case models.AudienceAllSquads:
		return users.WithSquad()
	default:
		var squads []string
		for _, s := range strings.Split(audience, ",") {
			if s = strings.TrimSpace(s); s != "" {
				squads = append(squads, s)
			}
		}
		if len(squads) == 0 {
			return nil, fmt.Errorf("empty audience descriptor %q", audience)
		}
		return users.BySquads(squads)
	}
}

func recipientOf(u models.User) notify.Recipient {
	return notify.Recipient{ChatID: u.GameID, Email: u.Email, Name: u.Nickname}
}
