//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"medious/internal/chat/handler"
	"medious/internal/chat/repository"
	"medious/internal/chat/service"
	"medious/internal/config"
	"medious/internal/dbmongo"
	"medious/internal/event"
	"medious/internal/feed"
	"medious/internal/media"
	"medious/internal/metrics"
	"medious/internal/notif"
	"medious/internal/story"
	"medious/internal/user"

	"github.com/google/wire"
	"go.uber.org/zap"
)

var userSet = wire.NewSet(
	user.NewUserRepository,
	user.NewFollowRepository,
	user.NewUserService,
	user.NewHandler,
	wire.Bind(new(user.Notifier), new(*notif.Service)),
)

var feedSet = wire.NewSet(
	feed.NewFeedRepository,
	feed.NewFeedService,
	feed.NewFeedHandlers,
	wire.Bind(new(feed.Posts), new(*feed.FeedRepository)),
	wire.Bind(new(feed.Likes), new(*feed.FeedRepository)),
	wire.Bind(new(feed.Comments), new(*feed.FeedRepository)),
	wire.Bind(new(feed.FeedUsecase), new(*feed.FeedService)),
	wire.Bind(new(feed.FollowingLister), new(user.FollowRepository)),
	wire.Bind(new(feed.UserGetter), new(user.UserRepository)),
)

var eventSet = wire.NewSet(
	event.NewEventRepository,
	event.NewEventService,
	event.NewHandler,
	wire.Bind(new(event.UserDirectory), new(user.UserRepository)),
	wire.Bind(new(event.Notifier), new(*notif.Service)),
)

var chatSet = wire.NewSet(
	repository.NewChatRepository,
	service.NewChatService,
	handler.NewChatHandler,
	wire.Bind(new(service.UserLookup), new(user.UserRepository)),
	wire.Bind(new(service.Notifier), new(*notif.Service)),
)

var storySet = wire.NewSet(
	dbmongo.NewMediaStorage,
	story.NewStoryRepository,
	ProvideStoryService,
	ProvideStoryHandler,
	ProvideSweeper,
	media.NewHTTPServer,
	wire.Bind(new(media.FileOpener), new(*dbmongo.MediaStorage)),
)

func InitializeApplication(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Application, func(), error) {
	wire.Build(
		ProvideMongo,
		ProvideTokenManager,
		ProvideMailer,
		ProvideNotificationService,
		ProvideLimiter,
		metrics.New,
		userSet,
		feedSet,
		eventSet,
		chatSet,
		storySet,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil, nil
}
