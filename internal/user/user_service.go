package user

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"medious/internal/common"
	"medious/internal/dbmongo"
	"medious/internal/metrics"
)

//go:generate mockgen -source=user_service.go -destination=mock_service_test.go -package=user

const (
	resetTokenTTL       = time.Hour
	defaultRadiusKm     = 10.0
	maxRadiusKm         = 500.0
	defaultNearbyLimit  = 20
	maxNearbyLimit      = 100
	defaultListLimit    = 50
	maxListLimit        = 100
	defaultSearchLimit  = 20
	maxSearchLimit      = 50
	maxBioLength        = 500
	forgotPasswordReply = "If the email exists, a reset link has been sent"
)

// Notifier is implemented by *notif.Service.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error
	NotifyNewFollower(followerID, followingID, followingEmail string)
}

type AuthResult struct {
	Token string
	User  *dbmongo.User
}

type SupabaseSyncRequest struct {
	SupabaseUserID string  `json:"supabase_user_id"`
	Email          string  `json:"email"`
	AuthProvider   string  `json:"auth_provider"`
	Name           *string `json:"name,omitempty"`
	Avatar         *string `json:"avatar,omitempty"`
}

type PublicProfile struct {
	User           *dbmongo.User
	FollowersCount int64
	FollowingCount int64
	IsFollowing    bool
}

type NearbyUser struct {
	User       *dbmongo.User
	DistanceKm float64
}

type UserService interface {
	Register(ctx context.Context, email, password, name string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, resetToken, newPassword string) error
	SupabaseSync(ctx context.Context, req SupabaseSyncRequest) (*AuthResult, error)

	Exists(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, userID string) (*dbmongo.User, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*dbmongo.User, error)
	GetPublicProfile(ctx context.Context, viewerID, userID string) (*PublicProfile, error)

	ToggleFollow(ctx context.Context, followerID, targetID string) (bool, error)
	ListFollowers(ctx context.Context, userID string, limit int) ([]*dbmongo.User, error)
	ListFollowing(ctx context.Context, userID string, limit int) ([]*dbmongo.User, error)

	UpdateLocation(ctx context.Context, userID string, lat, lng float64) error
	Nearby(ctx context.Context, userID string, radiusKm float64, limit int) ([]NearbyUser, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]*dbmongo.User, error)
}

type userService struct {
	userRepo   UserRepository
	followRepo FollowRepository
	tokens     *common.TokenManager
	notifier   Notifier
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func NewUserService(
	userRepo UserRepository,
	followRepo FollowRepository,
	tokens *common.TokenManager,
	notifier Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) UserService {
	return &userService{
		userRepo:   userRepo,
		followRepo: followRepo,
		tokens:     tokens,
		notifier:   notifier,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *userService) issue(user *dbmongo.User) (*AuthResult, error) {
	token, err := s.tokens.GenerateToken(user.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *userService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = common.NormalizeEmail(email)
	if err := common.ValidateEmail(email); err != nil {
		return nil, common.Unprocessable("%v", err)
	}
	if err := common.ValidatePassword(password); err != nil {
		return nil, common.Unprocessable("%v", err)
	}
	if err := common.ValidateName(name); err != nil {
		return nil, common.Unprocessable("%v", err)
	}

	//duplicates check
	_, err := s.userRepo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.BadRequest("Email already registered")
	case !errors.Is(err, dbmongo.ErrNotFound):
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	hashed, err := common.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &dbmongo.User{
		Email:        email,
		PasswordHash: &hashed,
		Name:         strings.TrimSpace(name),
		AuthProvider: dbmongo.AuthProviderEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, dbmongo.ErrDuplicate) {
			return nil, common.BadRequest("Email already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.AuthEvent("register")
	return s.issue(user)
}

func (s *userService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = common.NormalizeEmail(email)
	if err := common.ValidateEmail(email); err != nil {
		return nil, common.Unprocessable("%v", err)
	}
	if password == "" {
		return nil, common.Unprocessable("password is required")
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, dbmongo.ErrNotFound) {
			s.metrics.AuthEvent("login_failure")
			return nil, common.Unauthorized("Invalid email or password")
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.AuthProvider != dbmongo.AuthProviderEmail {
		return nil, common.BadRequest("This account uses %s login. Please use social login.", user.AuthProvider)
	}

	if user.PasswordHash == nil || !common.PasswordMatches(*user.PasswordHash, password) {
		s.metrics.AuthEvent("login_failure")
		return nil, common.Unauthorized("Invalid email or password")
	}

	s.metrics.AuthEvent("login_success")
	return s.issue(user)
}

// ForgotPassword never reveals whether the address is registered.
func (s *userService) ForgotPassword(ctx context.Context, email string) error {
	email = common.NormalizeEmail(email)
	if err := common.ValidateEmail(email); err != nil {
		return common.Unprocessable("%v", err)
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, dbmongo.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	token := uuid.NewString()
	expiry := s.now().Add(resetTokenTTL)
	if err := s.userRepo.SetResetToken(ctx, user.ID.Hex(), token, expiry); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, email, token, expiry); err != nil {
		s.logger.Warn("password reset mail failed", zap.String("email", email), zap.Error(err))
	}
	s.metrics.AuthEvent("password_reset_requested")
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, email, resetToken, newPassword string) error {
	email = common.NormalizeEmail(email)
	if err := common.ValidateEmail(email); err != nil {
		return common.Unprocessable("%v", err)
	}
	if err := common.ValidatePassword(newPassword); err != nil {
		return common.Unprocessable("%v", err)
	}
	if strings.TrimSpace(resetToken) == "" {
		return common.BadRequest("Invalid or expired reset token")
	}

	hashed, err := common.HashPassword(newPassword)
	if err != nil {
		return err
	}

	ok, err := s.userRepo.ResetPassword(ctx, email, resetToken, hashed, s.now())
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	if !ok {
		return common.BadRequest("Invalid or expired reset token")
	}

	s.metrics.AuthEvent("password_reset")
	return nil
}

func (s *userService) SupabaseSync(ctx context.Context, req SupabaseSyncRequest) (*AuthResult, error) {
	req.Email = common.NormalizeEmail(req.Email)
	if strings.TrimSpace(req.SupabaseUserID) == "" {
		return nil, common.Unprocessable("supabase_user_id is required")
	}
	if err := common.ValidateEmail(req.Email); err != nil {
		return nil, common.Unprocessable("%v", err)
	}
	if strings.TrimSpace(req.AuthProvider) == "" {
		return nil, common.Unprocessable("auth_provider is required")
	}

	existing, err := s.userRepo.GetUserBySupabaseID(ctx, req.SupabaseUserID)
	if err == nil {
		s.metrics.AuthEvent("supabase_login")
		return s.issue(existing)
	}
	if !errors.Is(err, dbmongo.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up supabase user: %w", err)
	}

	_, err = s.userRepo.GetUserByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, common.BadRequest("Email already registered with different authentication method")
	case !errors.Is(err, dbmongo.ErrNotFound):
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	name := req.Email[:strings.Index(req.Email, "@")]
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		name = strings.TrimSpace(*req.Name)
	}

	now := s.now().UTC()
	supabaseID := req.SupabaseUserID
	user := &dbmongo.User{
		Email:          req.Email,
		Name:           name,
		AuthProvider:   req.AuthProvider,
		SupabaseUserID: &supabaseID,
		Avatar:         req.Avatar,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, dbmongo.ErrDuplicate) {
			return nil, common.BadRequest("Email already registered with different authentication method")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.AuthEvent("supabase_register")
	return s.issue(user)
}

func notFoundUser(err error) error {
	if errors.Is(err, dbmongo.ErrNotFound) {
		return common.NotFound("User not found")
	}
	return fmt.Errorf("failed to load user: %w", err)
}

// Exists backs the auth middleware.
func (s *userService) Exists(ctx context.Context, userID string) error {
	if _, err := s.userRepo.GetUserByID(ctx, userID); err != nil {
		return notFoundUser(err)
	}
	return nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*dbmongo.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFoundUser(err)
	}
	return user, nil
}

// blankToNil treats empty strings as "leave unchanged".
func blankToNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*dbmongo.User, error) {
	update.Name = blankToNil(update.Name)
	update.Avatar = blankToNil(update.Avatar)
	update.Bio = blankToNil(update.Bio)

	if update.Name != nil {
		if err := common.ValidateName(*update.Name); err != nil {
			return nil, common.Unprocessable("%v", err)
		}
	}
	if update.Bio != nil && utf8.RuneCountInString(*update.Bio) > maxBioLength {
		return nil, common.Unprocessable("bio must be at most %d characters long", maxBioLength)
	}

	user, err := s.userRepo.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, notFoundUser(err)
	}
	return user, nil
}

func (s *userService) GetPublicProfile(ctx context.Context, viewerID, userID string) (*PublicProfile, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFoundUser(err)
	}

	followers, err := s.followRepo.CountFollowers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count followers: %w", err)
	}
	following, err := s.followRepo.CountFollowing(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count following: %w", err)
	}

	profile := &PublicProfile{User: user, FollowersCount: followers, FollowingCount: following}
	if viewerID != userID {
		profile.IsFollowing, err = s.followRepo.IsFollowing(ctx, viewerID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check follow: %w", err)
		}
	}
	return profile, nil
}

// ToggleFollow reports whether the follower follows the target afterwards.
func (s *userService) ToggleFollow(ctx context.Context, followerID, targetID string) (bool, error) {
	target, err := s.userRepo.GetUserByID(ctx, targetID)
	if err != nil {
		return false, notFoundUser(err)
	}
	// Hex ids are case-insensitive; edges always use the canonical form.
	targetID = target.ID.Hex()
	if followerID == targetID {
		return false, common.BadRequest("You cannot follow yourself")
	}

	removed, err := s.followRepo.Unfollow(ctx, followerID, targetID)
	if err != nil {
		return false, fmt.Errorf("failed to unfollow: %w", err)
	}
	if removed {
		return false, nil
	}

	if err := s.followRepo.Follow(ctx, followerID, targetID); err != nil {
		// a concurrent request created the edge first
		if errors.Is(err, dbmongo.ErrDuplicate) {
			return true, nil
		}
		return false, fmt.Errorf("failed to follow: %w", err)
	}
	s.notifier.NotifyNewFollower(followerID, targetID, target.Email)
	return true, nil
}

func (s *userService) listEdges(ctx context.Context, userID string, limit int,
	list func(context.Context, string, int) ([]string, error)) ([]*dbmongo.User, error) {
	if _, err := s.userRepo.GetUserByID(ctx, userID); err != nil {
		return nil, notFoundUser(err)
	}
	ids, err := list(ctx, userID, common.ClampLimit(limit, defaultListLimit, maxListLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to list follows: %w", err)
	}
	users, err := s.userRepo.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	// keep the newest-edge-first order; accounts deleted since are skipped
	byID := make(map[string]*dbmongo.User, len(users))
	for _, u := range users {
		byID[u.ID.Hex()] = u
	}
	out := make([]*dbmongo.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *userService) ListFollowers(ctx context.Context, userID string, limit int) ([]*dbmongo.User, error) {
	return s.listEdges(ctx, userID, limit, s.followRepo.ListFollowerIDs)
}

func (s *userService) ListFollowing(ctx context.Context, userID string, limit int) ([]*dbmongo.User, error) {
	return s.listEdges(ctx, userID, limit, s.followRepo.ListFollowingIDs)
}

func (s *userService) UpdateLocation(ctx context.Context, userID string, lat, lng float64) error {
	if err := common.ValidateCoordinates(lat, lng); err != nil {
		return common.Unprocessable("%v", err)
	}
	if err := s.userRepo.UpdateLocation(ctx, userID, dbmongo.NewGeoPoint(lat, lng)); err != nil {
		return notFoundUser(err)
	}
	return nil
}

// ClampRadius applies the nearby-search default and cap.
func ClampRadius(radiusKm float64) float64 {
	if radiusKm <= 0 || math.IsNaN(radiusKm) {
		return defaultRadiusKm
	}
	return math.Min(radiusKm, maxRadiusKm)
}

// Nearby asks the geo index for candidates, then keeps those within the great-circle radius.
func (s *userService) Nearby(ctx context.Context, userID string, radiusKm float64, limit int) ([]NearbyUser, error) {
	radiusKm = ClampRadius(radiusKm)
	limit = common.ClampLimit(limit, defaultNearbyLimit, maxNearbyLimit)

	me, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFoundUser(err)
	}
	if me.Location == nil {
		return nil, common.BadRequest("Please set your location first")
	}

	candidates, err := s.userRepo.FindNearby(ctx, me.Location, radiusKm, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby users: %w", err)
	}

	out := make([]NearbyUser, 0, len(candidates))
	for _, u := range candidates {
		if u.Location == nil || u.ID == me.ID {
			continue
		}
		d, ok := common.WithinRadius(me.Location.Lat(), me.Location.Lng(), u.Location.Lat(), u.Location.Lng(), radiusKm)
		if !ok {
			continue
		}
		out = append(out, NearbyUser{User: u, DistanceKm: math.Round(d*100) / 100})
	}
	return out, nil
}

func (s *userService) SearchUsers(ctx context.Context, query string, limit int) ([]*dbmongo.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, common.Unprocessable("Search query is required")
	}
	users, err := s.userRepo.SearchByName(ctx, query, common.ClampLimit(limit, defaultSearchLimit, maxSearchLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}
