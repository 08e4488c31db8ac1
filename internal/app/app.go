package app

import (
	"go.uber.org/fx"

	"github.com/middlemark/middlemark/internal/cache"
	"github.com/middlemark/middlemark/internal/config"
	"github.com/middlemark/middlemark/internal/database"
	"github.com/middlemark/middlemark/internal/logger"
	"github.com/middlemark/middlemark/internal/messaging"
	"github.com/middlemark/middlemark/internal/notify"
	"github.com/middlemark/middlemark/internal/observability"
	repositoryorder "github.com/middlemark/middlemark/internal/repository/order"
	httpserver "github.com/middlemark/middlemark/internal/server/http"
	serviceorder "github.com/middlemark/middlemark/internal/service/order"
	transporthttp "github.com/middlemark/middlemark/internal/transport/http"
	"github.com/middlemark/middlemark/internal/worker"
	workerorder "github.com/middlemark/middlemark/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	notify.Module,
	observability.Module,
	repositoryorder.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
