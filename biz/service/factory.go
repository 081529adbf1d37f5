package service

import (
	"sync"

	"github.com/CE-Thesis-2023/aqara-ltd/internal/cache"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/configs"

	"github.com/panjf2000/ants/v2"
)

var once sync.Once

var (
	cameraService *CameraService
	eventService  *EventService
)

func Init(globalConfigs *configs.Configs, pool *ants.Pool, options ...CameraServiceOptioner) {
	once.Do(func() {
		eventService = NewEventService(cache.Cache())
		cameraService = NewCameraService(globalConfigs, pool, options...)
	})
}

func GetCameraService() *CameraService {
	return cameraService
}

func GetEventService() *EventService {
	return eventService
}
