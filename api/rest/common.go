package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yorumine/groupwarden/identity"
	"github.com/yorumine/groupwarden/join"
	"github.com/yorumine/groupwarden/perm"
	"github.com/yorumine/groupwarden/rank"
	"github.com/yorumine/groupwarden/roblox"
	"github.com/yorumine/groupwarden/xp"
)

// writeError maps domain errors onto HTTP statuses. Anything outside the
// domain taxonomy is an upstream (provider/store) failure: surfaced with
// detail, never retried.
func writeError(c *gin.Context, err error) {
	var ageErr *join.AgeTooLowError
	var missingErr *join.MissingGroupsError
	var postErr *join.PostAdmissionError

	switch {
	case errors.Is(err, identity.ErrNotLinked),
		errors.Is(err, perm.ErrUnauthorized),
		errors.Is(err, rank.ErrSelfAction),
		errors.Is(err, rank.ErrInsufficientAuthority),
		errors.Is(err, xp.ErrInsufficientAuthority):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, perm.ErrNoMainGroup),
		errors.Is(err, join.ErrUnknownUser),
		errors.Is(err, join.ErrNoPendingRequest),
		errors.Is(err, roblox.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.As(err, &ageErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":         ageErr.Error(),
			"age_days":      ageErr.ActualDays,
			"required_days": ageErr.RequiredDays,
		})

	case errors.As(err, &missingErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":          missingErr.Error(),
			"missing_groups": missingErr.GroupIDs,
		})

	case errors.Is(err, rank.ErrAtCeiling),
		errors.Is(err, rank.ErrAtFloor):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, rank.ErrInvalidInput),
		errors.Is(err, xp.ErrInvalidAction),
		errors.Is(err, xp.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, xp.ErrBusy):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})

	case errors.As(err, &postErr):
		// Admission committed; the caller must know both facts.
		c.JSON(http.StatusBadGateway, gin.H{"error": postErr.Error(), "admitted": true})

	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream failure: " + err.Error()})
	}
}
