package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/utils"
	"github.com/rs/zerolog/log"
)

const (
	accessTokenRequired string = "error.token.required"
	accessTokenInvalid  string = "error.token.invalid"
)

// TokenVerifier is satisfied by *auth.Client from the firebase SDK.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

func VerifyAuthToken(verifier TokenVerifier) gin.HandlerFunc {
	return func(context *gin.Context) {
		authHeader := context.Request.Header.Get("Authorization")
		idTokenValue := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if idTokenValue == "" {
			log.Warn().Msg("Token missing: 401")
			context.AbortWithStatusJSON(
				http.StatusUnauthorized,
				reject.NewProblem().
					WithTitle("Missing access token").
					WithStatus(http.StatusUnauthorized).
					WithCode(accessTokenRequired).
					Build())
			return
		}
		token, err := verifier.VerifyIDToken(context.Request.Context(), idTokenValue)
		if err != nil {
			log.Warn().Msg(fmt.Sprintf("Error verifying token: %s", err.Error()))
			context.AbortWithStatusJSON(
				http.StatusUnauthorized,
				reject.NewProblem().
					WithTitle("Cannot verify access token").
					WithStatus(http.StatusUnauthorized).
					WithCode(accessTokenInvalid).
					WithDetail(err.Error()).
					Build())
			return
		}
		accessTokenDetails := utils.AccessToken{
			Token:    *token,
			RawToken: idTokenValue,
		}
		utils.SetAccessTokenCtx(&accessTokenDetails, context)
	}
}

// TokenFromQuery lets clients that cannot set headers, such as browser
// websockets, pass the id token in the named query parameter. An
// Authorization header always wins. Must run before VerifyAuthToken.
func TokenFromQuery(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Header.Get("Authorization") != "" {
			return
		}
		if token := c.Query(param); token != "" {
			c.Request.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// RequireAdmin must run after VerifyAuthToken.
func RequireAdmin(c *gin.Context) {
	if !utils.IsAdmin(c) {
		log.Info().Str("actorId", utils.GetActorId(c)).Str("path", c.FullPath()).Msg("Admin route refused")
		c.AbortWithStatusJSON(http.StatusForbidden, reject.ForbiddenProblem())
		return
	}
}
