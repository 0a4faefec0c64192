package utils

import (
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
)

const (
	adminClaimKey   string = "admin"
	actorIdClaimKey string = "actor_id"
	tokenCtxKey     string = "accessToken"
)

type AccessToken struct {
	Token    auth.Token
	RawToken string
}

func GetAccessToken(ctx *gin.Context) auth.Token {
	at := getAccessToken(ctx)
	return at.Token
}

func getAccessToken(ctx *gin.Context) AccessToken {
	value := getCtxValue(tokenCtxKey, ctx)
	at, _ := value.(AccessToken)
	return at
}

// GetActorId returns the authenticated actor. The chat front-end mints
// tokens carrying the member id in the actor_id claim; other clients fall
// back to the token subject.
func GetActorId(ctx *gin.Context) string {
	token := GetAccessToken(ctx)
	if actorId, ok := token.Claims[actorIdClaimKey].(string); ok && actorId != "" {
		return actorId
	}
	return token.Subject
}

func IsAdmin(ctx *gin.Context) bool {
	token := GetAccessToken(ctx)
	admin, _ := token.Claims[adminClaimKey].(bool)
	return admin
}

func getCtxValue(key string, ctx *gin.Context) any {
	value, exists := ctx.Get(key)
	if !exists {
		ctx.AbortWithStatus(http.StatusInternalServerError)
	}
	return value
}

func SetAccessTokenCtx(token *AccessToken, ctx *gin.Context) {
	ctx.Set(tokenCtxKey, *token)
}
