package main

import (
	_ "github.com/eleven-am/wastelens/docs"
	"github.com/eleven-am/wastelens/internal/bootstrap"
)

// @title Wastelens API
// @version 1.0.0
// @description Relay in front of the waste detection model

// @BasePath /api

func main() {
	bootstrap.Run()
}
