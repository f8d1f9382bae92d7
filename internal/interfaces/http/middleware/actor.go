package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/kif1r4ek/test-my-sklad/internal/interfaces/http/dto"
)

// ActorHeader carries the id of the employee behind a request. It is set by
// the session layer in front of this service.
const ActorHeader = "X-User-ID"

const actorKey = "actor"

// Actor resolves the acting employee and rejects requests without one.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(ActorHeader), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "User is not identified", GetRequestID(c)))
			return
		}
		c.Set(actorKey, supply.Actor{UserID: id})
		c.Next()
	}
}

// GetActor returns the actor set by Actor.
func GetActor(c *gin.Context) (supply.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return supply.Actor{}, false
	}
	actor, ok := v.(supply.Actor)
	return actor, ok
}
