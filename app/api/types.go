package api

import (
	"github.com/trendline-app/trendline/app/catalog"
	"github.com/trendline-app/trendline/app/database"
	"github.com/trendline-app/trendline/app/tasks"
)

type Handler struct {
	db          *database.DB
	postRepo    database.PostRepository
	topicRepo   database.TopicRepository
	channelRepo database.ChannelRepository
	catalog     *catalog.Catalog
	scheduler   tasks.TaskSchedulerInterface
}
