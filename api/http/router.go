// Copyright 2023 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.


package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mendersoftware/go-lib-micro/accesslog"
	"github.com/mendersoftware/go-lib-micro/requestid"

	"github.com/mendersoftware/kioskconnect/app"
)

// API URL used by the HTTP router
const (
	APIURLStatus  = "/status"
	APIURLMetrics = "/metrics"
	APIURLBase    = "/api/v1/kioskconnect"

	APIURLAlive       = APIURLBase + "/alive"
	APIURLHealth      = APIURLBase + "/health"
	APIURLDevice      = APIURLBase + "/device"
	APIURLDeviceWatch = APIURLBase + "/device/watch"
)

// NewRouter returns the gin router
func NewRouter(
	app app.App,
) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	gin.DisableConsoleColor()

	router := gin.New()
	router.Use(accesslog.Middleware())
	router.Use(gin.Recovery())
	router.Use(requestid.Middleware())
	router.Use(cors.New(cors.Config{
		AllowOriginFunc:  isAcceptedOrigin,
		AllowCredentials: true,
		AllowHeaders: []string{
			"Accept",
			"Allow",
			"Content-Type",
			"Origin",
			"Accept-Encoding",
			"Access-Control-Request-Headers",
			"Header-Access-Control-Request",
		},
		AllowMethods: []string{
			http.MethodGet,
			http.MethodOptions,
		},
		AllowWebSockets: true,
		MaxAge:          time.Hour * 12,
	}))

	status := NewStatusController(app)
	router.GET(APIURLAlive, status.Alive)
	router.GET(APIURLHealth, status.Health)

	device := NewDeviceController(app)
	router.GET(APIURLStatus, device.VerificationCode)
	router.GET(APIURLDevice, device.Status)
	router.GET(APIURLDeviceWatch, device.Watch)

	router.GET(APIURLMetrics, gin.WrapH(promhttp.Handler()))

	return router, nil
}
