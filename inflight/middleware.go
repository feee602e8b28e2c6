package inflight

import (
	"lexshare/utils"

	"github.com/gin-gonic/gin"
)

// Middleware runs the rest of the chain through Do, holding the key action:user:id
// where id is the route's :id parameter. When the key is held, or the guard itself
// fails, the error goes to respond and the chain is aborted; respond is expected to
// map ErrBusy to 409. It must run after the auth middleware.
func Middleware(g Guard, action string, respond func(*gin.Context, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := utils.CurrentUser(c)
		key := Key(action, userID, c.Param("id"))

		err := Do(c.Request.Context(), g, key, func() error {
			c.Next()
			return nil
		})
		if err != nil {
			respond(c, err)
			c.Abort()
		}
	}
}
