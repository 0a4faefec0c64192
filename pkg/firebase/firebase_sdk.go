package firebase

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/rs/zerolog/log"
)

// NewAuthClient builds the firebase auth client from the ambient Google
// credentials. The returned client verifies bearer tokens for the API.
func NewAuthClient(ctx context.Context) (*auth.Client, error) {
	app, appErr := firebase.NewApp(ctx, nil)
	if appErr != nil {
		log.Error().Err(appErr).Msg("error initializing app")
		return nil, appErr
	}
	authClient, clientErr := app.Auth(ctx)
	if clientErr != nil {
		log.Error().Err(clientErr).Msg("error getting Auth client")
		return nil, clientErr
	}
	return authClient, nil
}
