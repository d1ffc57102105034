package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

type fakeCognito struct {
	users     map[string]string
	passwords map[string]string
	groups    map[string]string

	lastAuthParams map[string]string
	lastAttrs      []types.AttributeType
	authErr        error
	setPasswordErr error
	getUserErr     error
}

func newFakeCognito() *fakeCognito {
	return &fakeCognito{
		users:     map[string]string{},
		passwords: map[string]string{},
		groups:    map[string]string{},
	}
}

func (f *fakeCognito) AdminGetUser(_ context.Context, in *cip.AdminGetUserInput, _ ...func(*cip.Options)) (*cip.AdminGetUserOutput, error) {
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	sub, ok := f.users[aws.ToString(in.Username)]
	if !ok {
		return nil, &types.UserNotFoundException{Message: aws.String("User does not exist.")}
	}
	return &cip.AdminGetUserOutput{
		Username: in.Username,
		UserAttributes: []types.AttributeType{
			{Name: aws.String("name"), Value: aws.String("x")},
			{Name: aws.String("sub"), Value: aws.String(sub)},
		},
	}, nil
}

func (f *fakeCognito) AdminCreateUser(_ context.Context, in *cip.AdminCreateUserInput, _ ...func(*cip.Options)) (*cip.AdminCreateUserOutput, error) {
	name := aws.ToString(in.Username)
	if _, ok := f.users[name]; ok {
		return nil, &types.UsernameExistsException{Message: aws.String("exists")}
	}
	if in.MessageAction != types.MessageActionTypeSuppress {
		return nil, errors.New("expected suppressed welcome message")
	}
	f.users[name] = "sub-" + name
	f.lastAttrs = in.UserAttributes
	return &cip.AdminCreateUserOutput{}, nil
}

func (f *fakeCognito) AdminSetUserPassword(_ context.Context, in *cip.AdminSetUserPasswordInput, _ ...func(*cip.Options)) (*cip.AdminSetUserPasswordOutput, error) {
	if !in.Permanent {
		return nil, errors.New("expected permanent password")
	}
	if f.setPasswordErr != nil {
		return nil, f.setPasswordErr
	}
	name := aws.ToString(in.Username)
	if _, ok := f.users[name]; !ok {
		return nil, &types.UserNotFoundException{Message: aws.String("missing")}
	}
	f.passwords[name] = aws.ToString(in.Password)
	return &cip.AdminSetUserPasswordOutput{}, nil
}

func (f *fakeCognito) AdminAddUserToGroup(_ context.Context, in *cip.AdminAddUserToGroupInput, _ ...func(*cip.Options)) (*cip.AdminAddUserToGroupOutput, error) {
	f.groups[aws.ToString(in.Username)] = aws.ToString(in.GroupName)
	return &cip.AdminAddUserToGroupOutput{}, nil
}

func (f *fakeCognito) AdminDeleteUser(_ context.Context, in *cip.AdminDeleteUserInput, _ ...func(*cip.Options)) (*cip.AdminDeleteUserOutput, error) {
	name := aws.ToString(in.Username)
	if _, ok := f.users[name]; !ok {
		return nil, &types.UserNotFoundException{Message: aws.String("missing")}
	}
	delete(f.users, name)
	return &cip.AdminDeleteUserOutput{}, nil
}

func (f *fakeCognito) InitiateAuth(_ context.Context, in *cip.InitiateAuthInput, _ ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	f.lastAuthParams = in.AuthParameters
	if f.authErr != nil {
		return nil, f.authErr
	}
	name := in.AuthParameters["USERNAME"]
	if pw, ok := f.passwords[name]; !ok || pw != in.AuthParameters["PASSWORD"] {
		return nil, &types.NotAuthorizedException{Message: aws.String("Incorrect username or password.")}
	}
	return &cip.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{
			AccessToken:  aws.String("access"),
			IdToken:      aws.String("id"),
			RefreshToken: aws.String("refresh"),
			ExpiresIn:    3600,
		},
	}, nil
}

func testConfig() Config {
	return Config{Region: "ap-south-1", UserPoolID: "ap-south-1_pool", ClientID: "client", ClientSecret: "secret"}
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	api := newFakeCognito()
	c := newCognitoWithAPI(api, testConfig())
	ctx := context.Background()

	sub, err := c.CreateUser(ctx, "+919876543210", "pass123", "9876543210", true)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if sub != "sub-+919876543210" {
		t.Fatalf("unexpected sub %q", sub)
	}
	if aws.ToString(api.lastAttrs[0].Name) != "phone_number" {
		t.Fatalf("expected phone attributes, got %v", aws.ToString(api.lastAttrs[0].Name))
	}

	if _, err := c.CreateUser(ctx, "+919876543210", "pass123", "x", true); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	tokens, err := c.Authenticate(ctx, "+919876543210", "pass123")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if tokens.AccessToken != "access" || tokens.ExpiresIn != 3600 {
		t.Fatalf("unexpected tokens %+v", tokens)
	}
	if api.lastAuthParams["SECRET_HASH"] != SecretHash("secret", "+919876543210", "client") {
		t.Fatal("secret hash missing from auth parameters")
	}

	if _, err := c.Authenticate(ctx, "+919876543210", "wrong"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestCreateUserRollsBackPartialAccount(t *testing.T) {
	ctx := context.Background()

	api := newFakeCognito()
	api.setPasswordErr = &types.InvalidPasswordException{Message: aws.String("Password did not conform with policy")}
	c := newCognitoWithAPI(api, testConfig())

	_, err := c.CreateUser(ctx, "+919876543210", "Secret1", "9876543210", true)
	var invalid *types.InvalidPasswordException
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidPasswordException, got %v", err)
	}
	if _, ok := api.users["+919876543210"]; ok {
		t.Fatal("account left behind after failed password set")
	}

	api.setPasswordErr = nil
	api.getUserErr = errors.New("throttled")
	if _, err := c.CreateUser(ctx, "a@b.com", "Secret1!", "a", false); err == nil {
		t.Fatal("expected error when subject lookup fails")
	}
	if _, ok := api.users["a@b.com"]; ok {
		t.Fatal("account left behind after failed subject lookup")
	}

	api.getUserErr = nil
	if _, err := c.CreateUser(ctx, "+919876543210", "Secret1!", "9876543210", true); err != nil {
		t.Fatalf("retry after rollback: %v", err)
	}
}

func TestAuthenticateInfrastructureError(t *testing.T) {
	api := newFakeCognito()
	api.authErr = errors.New("throttled")
	c := newCognitoWithAPI(api, testConfig())

	_, err := c.Authenticate(context.Background(), "a@b.io", "x")
	if err == nil || errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected non-credential error, got %v", err)
	}
}

func TestUserExistsAndDelete(t *testing.T) {
	api := newFakeCognito()
	api.users["a@b.io"] = "sub-1"
	c := newCognitoWithAPI(api, testConfig())
	ctx := context.Background()

	ok, err := c.UserExists(ctx, "a@b.io")
	if err != nil || !ok {
		t.Fatalf("expected user to exist, ok=%v err=%v", ok, err)
	}
	if err := c.DeleteUser(ctx, "a@b.io"); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	ok, err = c.UserExists(ctx, "a@b.io")
	if err != nil || ok {
		t.Fatalf("expected user to be gone, ok=%v err=%v", ok, err)
	}
	if err := c.DeleteUser(ctx, "a@b.io"); err != nil {
		t.Fatalf("deleting a missing user should succeed, got %v", err)
	}
}

func TestGroupForRole(t *testing.T) {
	cases := map[string]string{
		"Admin":     GroupAdmin,
		"ClubOwner": GroupClubOwner,
		"Client":    GroupMember,
		"":          GroupMember,
		"Trainer":   GroupMember,
	}
	for role, want := range cases {
		if got := GroupForRole(role); got != want {
			t.Fatalf("GroupForRole(%q) = %q, want %q", role, got, want)
		}
	}
}

func TestSecretHashKnownVector(t *testing.T) {
	// HMAC-SHA256("secret", "userclient"), base64.
	if got := SecretHash("secret", "user", "client"); got != "wvW87lzZoI+qQCVGmWVBJLlucdJ65huAVP1z+0MgA6E=" {
		t.Fatalf("unexpected secret hash %q", got)
	}
}

func TestIssuerAndJWKSURL(t *testing.T) {
	c := newCognitoWithAPI(newFakeCognito(), testConfig())
	if c.JWKSURL() != "https://cognito-idp.ap-south-1.amazonaws.com/ap-south-1_pool/.well-known/jwks.json" {
		t.Fatalf("unexpected jwks url %q", c.JWKSURL())
	}
}
