/*
Package authsdk is a Go client for the agentauth HTTP API.

An SDKClient covers the public endpoints and starts sessions:

	client := authsdk.NewSDKClient("https://auth.example.com")

	health, err := client.GetLiveness(ctx)

	user, err := client.Register(ctx, authsdk.RegisterRequest{
		Fullname: "Ada Lovelace",
		Email:    "ada@example.com",
		Password: "correct horse",
	})

	session, err := client.AuthenticateWithPassword(ctx, "ada@example.com", "correct horse")

A Session carries the token pair and refreshes the access token when it
expires:

	me, err := session.Me(ctx)

	grant, err := session.RequestResourceAccess(ctx, authsdk.ResourceAccessRequest{
		ResourceType: "file",
		ResourceID:   "42",
	})
	file, err := client.FetchSignedResource(ctx, grant.SignedURL)

Failed requests return an *APIError carrying the HTTP status and the
service's error code:

	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeInvalidGrant {
		// wrong email or password
	}
*/
package authsdk
