package apitest

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/anonto42/nano-midea/client/pkg/models"
)

const signingSecret = "apitest-signing-secret"

// claims are the custom claims the backend embeds in its bearer tokens.
type claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// Server is an in-memory fake of the backend's /api/v1 surface, serving the
// same routes, envelopes and status codes with echo. Post and comment ids
// are minted the backend's way (MongoDB ObjectID hex, sequential uints).
// State is per-instance; create a fresh Server per test.
type Server struct {
	mu            sync.Mutex
	users         map[uint]*models.User
	friends       map[uint]map[uint]bool
	following     map[uint]map[uint]bool
	requests      map[uint]*models.FriendRequest
	nextRequestID uint
	posts         map[string]*models.Post
	likes         map[string]map[uint]bool
	saved         map[uint]map[string]uint
	nextSavedID   uint
	comments      map[string][]models.Comment
	nextCommentID uint

	echo *echo.Echo
}

// NewServer creates an empty fake backend.
func NewServer() *Server {
	s := &Server{
		users:     make(map[uint]*models.User),
		friends:   make(map[uint]map[uint]bool),
		following: make(map[uint]map[uint]bool),
		requests:  make(map[uint]*models.FriendRequest),
		posts:     make(map[string]*models.Post),
		likes:     make(map[string]map[uint]bool),
		saved:     make(map[uint]map[string]uint),
		comments:  make(map[string][]models.Comment),
	}

	e := echo.New()
	e.HideBanner = true
	api := e.Group("", s.authMiddleware)

	api.GET("/users", s.listUsers)
	api.GET("/posts", s.listPosts)
	api.GET("/friends", s.listFriends)
	api.GET("/friends/requests/sent", s.listSentRequests)
	api.GET("/friends/requests/pending", s.listReceivedRequests)
	api.GET("/posts/saved", s.listSavedPosts)

	api.POST("/friends/request", s.sendFriendRequest)
	api.DELETE("/friends/request/:id", s.cancelFriendRequest)
	api.PUT("/friends/request/:id/status", s.respondFriendRequest)
	api.DELETE("/friends/:id", s.unfriend)
	api.POST("/users/:id/follow", s.followUser)
	api.DELETE("/users/:id/follow", s.unfollowUser)

	api.POST("/posts/:id/like/toggle", s.toggleLike)
	api.POST("/posts/:id/save/toggle", s.toggleSave)
	api.GET("/posts/:id/likes", s.listLikers)
	api.GET("/posts/:id/comments", s.listComments)

	s.echo = e
	return s
}

// Handler returns the HTTP handler, for use with httptest.NewServer.
func (s *Server) Handler() http.Handler { return s.echo }

// Token mints a bearer token for the given user, signed the backend's way.
func (s *Server) Token(userID uint) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(signingSecret))
	if err != nil {
		panic(err)
	}
	return signed
}

func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing or malformed Authorization header")
		}
		cl := &claims{}
		token, err := jwt.ParseWithClaims(authHeader[7:], cl, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unexpected signing method")
			}
			return []byte(signingSecret), nil
		})
		if err != nil || !token.Valid {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}
		c.Set("userID", cl.UserID)
		return next(c)
	}
}

func currentUserID(c echo.Context) uint {
	id, _ := c.Get("userID").(uint)
	return id
}

// --- Seed helpers for tests ---

// AddUser registers a user.
func (s *Server) AddUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := u
	s.users[u.ID] = &copied
	if s.friends[u.ID] == nil {
		s.friends[u.ID] = make(map[uint]bool)
	}
	if s.following[u.ID] == nil {
		s.following[u.ID] = make(map[uint]bool)
	}
}

// AddPost creates a post with a freshly minted ObjectID and returns it.
func (s *Server) AddPost(authorID uint, content string) models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	post := models.Post{
		ID:        primitive.NewObjectID().Hex(),
		UserID:    authorID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	s.posts[post.ID] = &post
	s.likes[post.ID] = make(map[uint]bool)
	return post
}

// MakeFriends records a confirmed friendship between two users.
func (s *Server) MakeFriends(a, b uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friends[a][b] = true
	s.friends[b][a] = true
}

// AddRequest creates a pending friend request and returns its id.
func (s *Server) AddRequest(senderID, receiverID uint) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRequestID++
	s.requests[s.nextRequestID] = &models.FriendRequest{
		ID:         s.nextRequestID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.FriendRequestPending,
	}
	return s.nextRequestID
}

// Like records an existing like on a post.
func (s *Server) Like(postID string, userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likes[postID][userID] = true
}

// AddComment records a comment on a post.
func (s *Server) AddComment(postID string, userID uint, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCommentID++
	s.comments[postID] = append(s.comments[postID], models.Comment{
		ID:        s.nextCommentID,
		PostID:    postID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
}

// --- Collection handlers ---

func (s *Server) listUsers(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, s.userViewLocked(u.ID))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return c.JSON(http.StatusOK, users)
}

// userViewLocked renders a user with its relationship sets filled in.
func (s *Server) userViewLocked(id uint) models.User {
	u := *s.users[id]
	u.Friends = sortedIDs(s.friends[id])
	u.Following = sortedIDs(s.following[id])
	var followers []uint
	for other, set := range s.following {
		if set[id] {
			followers = append(followers, other)
		}
	}
	sort.Slice(followers, func(i, j int) bool { return followers[i] < followers[j] })
	u.Followers = followers
	return u
}

func sortedIDs(set map[uint]bool) []uint {
	ids := make([]uint, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Server) listPosts(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := make([]models.Post, 0, len(s.posts))
	for id, p := range s.posts {
		post := *p
		post.Likes = sortedIDs(s.likes[id])
		post.CommentsCount = len(s.comments[id])
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return c.JSON(http.StatusOK, posts)
}

func (s *Server) listFriends(c echo.Context) error {
	userID := currentUserID(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	friends := make([]models.User, 0)
	for id := range s.friends[userID] {
		if _, ok := s.users[id]; ok {
			friends = append(friends, s.userViewLocked(id))
		}
	}
	sort.Slice(friends, func(i, j int) bool { return friends[i].ID < friends[j].ID })
	return c.JSON(http.StatusOK, friends)
}

func (s *Server) listSentRequests(c echo.Context) error {
	return s.listRequests(c, func(r *models.FriendRequest, viewer uint) bool {
		return r.SenderID == viewer
	})
}

func (s *Server) listReceivedRequests(c echo.Context) error {
	return s.listRequests(c, func(r *models.FriendRequest, viewer uint) bool {
		return r.ReceiverID == viewer
	})
}

func (s *Server) listRequests(c echo.Context, match func(*models.FriendRequest, uint) bool) error {
	userID := currentUserID(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	requests := make([]models.FriendRequest, 0)
	for _, r := range s.requests {
		if r.Status == models.FriendRequestPending && match(r, userID) {
			requests = append(requests, *r)
		}
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].ID < requests[j].ID })
	return c.JSON(http.StatusOK, requests)
}

func (s *Server) listSavedPosts(c echo.Context) error {
	userID := currentUserID(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make([]models.SavedPost, 0)
	for postID, savedID := range s.saved[userID] {
		saved = append(saved, models.SavedPost{ID: savedID, UserID: userID, PostID: postID})
	}
	sort.Slice(saved, func(i, j int) bool { return saved[i].ID < saved[j].ID })
	return c.JSON(http.StatusOK, saved)
}

// --- Relationship handlers ---

func (s *Server) sendFriendRequest(c echo.Context) error {
	userID := currentUserID(c)
	var payload struct {
		ReceiverID uint `json:"receiver_id"`
	}
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[payload.ReceiverID]; !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Receiver user not found")
	}
	if userID == payload.ReceiverID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot send a friend request to yourself")
	}
	if s.friends[userID][payload.ReceiverID] {
		return echo.NewHTTPError(http.StatusConflict, "Users are already friends")
	}
	for _, r := range s.requests {
		if r.Status != models.FriendRequestPending {
			continue
		}
		if (r.SenderID == userID && r.ReceiverID == payload.ReceiverID) ||
			(r.SenderID == payload.ReceiverID && r.ReceiverID == userID) {
			return echo.NewHTTPError(http.StatusConflict, "A pending friend request already exists between these users")
		}
	}

	s.nextRequestID++
	request := &models.FriendRequest{
		ID:         s.nextRequestID,
		SenderID:   userID,
		ReceiverID: payload.ReceiverID,
		Status:     models.FriendRequestPending,
	}
	s.requests[request.ID] = request
	return c.JSON(http.StatusCreated, request)
}

func requestIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid request ID")
	}
	return uint(id), nil
}

func (s *Server) cancelFriendRequest(c echo.Context) error {
	userID := currentUserID(c)
	requestID, err := requestIDParam(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[requestID]
	if !ok || request.Status != models.FriendRequestPending {
		return echo.NewHTTPError(http.StatusNotFound, "Friend request not found")
	}
	if request.SenderID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not the sender of this friend request")
	}
	delete(s.requests, requestID)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) respondFriendRequest(c echo.Context) error {
	userID := currentUserID(c)
	requestID, err := requestIDParam(c)
	if err != nil {
		return err
	}
	var payload struct {
		Status models.FriendRequestStatus `json:"status"`
	}
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if payload.Status != models.FriendRequestAccepted && payload.Status != models.FriendRequestRejected {
		return echo.NewHTTPError(http.StatusBadRequest, "Status must be accepted or rejected")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[requestID]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Friend request not found")
	}
	if request.ReceiverID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to modify this friend request")
	}
	if request.Status != models.FriendRequestPending {
		return echo.NewHTTPError(http.StatusConflict, "Friend request already resolved")
	}

	delete(s.requests, requestID)
	// Drop a duplicate pending request in the opposite direction too.
	for id, r := range s.requests {
		if r.SenderID == request.ReceiverID && r.ReceiverID == request.SenderID && r.Status == models.FriendRequestPending {
			delete(s.requests, id)
		}
	}
	if payload.Status == models.FriendRequestAccepted {
		s.friends[request.SenderID][request.ReceiverID] = true
		s.friends[request.ReceiverID][request.SenderID] = true
	}

	resolved := *request
	resolved.Status = payload.Status
	return c.JSON(http.StatusOK, resolved)
}

func (s *Server) unfriend(c echo.Context) error {
	userID := currentUserID(c)
	friendID, err := requestIDParam(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.friends[userID][friendID] {
		return echo.NewHTTPError(http.StatusNotFound, "Friendship not found")
	}
	delete(s.friends[userID], friendID)
	delete(s.friends[friendID], userID)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) followUser(c echo.Context) error {
	userID := currentUserID(c)
	targetID, err := requestIDParam(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[targetID]; !ok {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	if s.following[userID][targetID] {
		return echo.NewHTTPError(http.StatusConflict, "Already following this user")
	}
	s.following[userID][targetID] = true
	return c.JSON(http.StatusCreated, echo.Map{"success": true})
}

func (s *Server) unfollowUser(c echo.Context) error {
	userID := currentUserID(c)
	targetID, err := requestIDParam(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.following[userID][targetID] {
		return echo.NewHTTPError(http.StatusNotFound, "Not following this user")
	}
	delete(s.following[userID], targetID)
	return c.NoContent(http.StatusNoContent)
}

// --- Engagement handlers ---

func (s *Server) postOr404(c echo.Context) (string, error) {
	postID := c.Param("id")
	if _, ok := s.posts[postID]; !ok {
		return "", echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}
	return postID, nil
}

func (s *Server) likersLocked(postID string) []models.User {
	likers := make([]models.User, 0)
	for _, id := range sortedIDs(s.likes[postID]) {
		if u, ok := s.users[id]; ok {
			likers = append(likers, *u)
		}
	}
	return likers
}

func (s *Server) toggleLike(c echo.Context) error {
	userID := currentUserID(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	postID, err := s.postOr404(c)
	if err != nil {
		return err
	}
	if s.likes[postID][userID] {
		delete(s.likes[postID], userID)
	} else {
		s.likes[postID][userID] = true
	}
	return c.JSON(http.StatusOK, echo.Map{"likers": s.likersLocked(postID)})
}

func (s *Server) toggleSave(c echo.Context) error {
	userID := currentUserID(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	postID, err := s.postOr404(c)
	if err != nil {
		return err
	}
	if s.saved[userID] == nil {
		s.saved[userID] = make(map[string]uint)
	}
	if _, ok := s.saved[userID][postID]; ok {
		delete(s.saved[userID], postID)
		return c.JSON(http.StatusOK, echo.Map{"saved": false})
	}
	s.nextSavedID++
	s.saved[userID][postID] = s.nextSavedID
	return c.JSON(http.StatusOK, echo.Map{"saved": true})
}

func (s *Server) listLikers(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	postID, err := s.postOr404(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"likers": s.likersLocked(postID)})
}

func (s *Server) listComments(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	postID, err := s.postOr404(c)
	if err != nil {
		return err
	}
	comments := append([]models.Comment(nil), s.comments[postID]...)
	return c.JSON(http.StatusOK, comments)
}
