package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/akamensky/argparse"
	"github.com/eleven-am/wastelens/internal/capture"
	"github.com/eleven-am/wastelens/internal/detection"
	"github.com/eleven-am/wastelens/internal/imaging"
	"github.com/eleven-am/wastelens/internal/render"
	"github.com/eleven-am/wastelens/internal/session"
)

func main() {
	parser := argparse.NewParser("snap", "Detect waste in an image or camera frame and write an annotated PNG")
	file := parser.String("f", "file", &argparse.Options{Help: "Image file to upload"})
	mjpegURL := parser.String("", "mjpeg", &argparse.Options{Help: "MJPEG camera URL to grab a frame from"})
	rtpAddr := parser.String("", "rtp", &argparse.Options{Help: "UDP address to receive a VP8 RTP stream on"})
	apiURL := parser.String("a", "api", &argparse.Options{Help: "Detection service base URL", Default: "http://127.0.0.1:5000"})
	out := parser.String("o", "out", &argparse.Options{Help: "Output PNG", Default: "detections.png"})
	maxDim := parser.Int("", "max-dim", &argparse.Options{Help: "Longest side after resizing", Default: imaging.DefaultMaxDimension})
	quality := parser.Float("", "quality", &argparse.Options{Help: "JPEG quality in (0, 1]", Default: imaging.DefaultQuality})
	threshold := parser.Float("t", "threshold", &argparse.Options{Help: "Confidence threshold", Default: detection.DefaultConfidenceThreshold})
	model := parser.String("m", "model", &argparse.Options{Help: "Model type", Default: "yolov8"})
	fallback := parser.Selector("", "fallback", []string{string(detection.FallbackNone), string(detection.FallbackSimulated)}, &argparse.Options{Help: "Fallback when the service is unreachable", Default: string(detection.FallbackNone)})
	timeout := parser.Int("", "timeout", &argparse.Options{Help: "Overall timeout in seconds", Default: 60})
	verbose := parser.Flag("v", "verbose", &argparse.Options{Help: "Debug logging"})
	if err := parser.Parse(os.Args); err != nil {
		fmt.Fprint(os.Stderr, parser.Usage(err))
		os.Exit(1)
	}

	sources := 0
	for _, s := range []string{*file, *mjpegURL, *rtpAddr} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		fmt.Fprint(os.Stderr, parser.Usage("exactly one of --file, --mjpeg or --rtp is required"))
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(*timeout)*time.Second)
	defer cancel()

	client := detection.NewClient(detection.Config{
		BaseURL:             *apiURL,
		ConfidenceThreshold: *threshold,
		ModelType:           *model,
		Timeout:             time.Duration(*timeout) * time.Second,
		Fallback:            detection.Fallback(*fallback),
	}, logger)

	var camera session.Camera
	switch {
	case *mjpegURL != "":
		camera = capture.NewController(capture.NewMJPEGDevice(*mjpegURL, logger), logger)
	case *rtpAddr != "":
		camera = capture.NewController(capture.NewRTPDevice(*rtpAddr, logger), logger)
	}

	canvas := render.NewCanvas(1, 1)
	renderer := render.NewRenderer(canvas, render.DefaultStyle(), logger)

	sess := session.New(client, camera, renderer, session.Config{
		MaxDimension: *maxDim,
		Quality:      *quality,
		Constraints:  capture.DefaultConstraints(),
		Logger:       logger,
	})
	defer sess.Close()

	if err := submit(ctx, sess, *file); err != nil {
		logger.Error("failed to submit image", "error", err)
		os.Exit(1)
	}

	snap, err := sess.Wait(ctx)
	if err != nil {
		logger.Error("detection did not finish", "error", err)
		os.Exit(1)
	}
	if failed, ok := sess.State().(session.Failed); ok {
		logger.Error("detection failed", "error", failed.Err)
		fmt.Fprintln(os.Stderr, failed.Message)
		os.Exit(1)
	}

	if snap.Result != nil && snap.Result.Simulated {
		fmt.Println("(simulated)")
	}
	if len(snap.Detections()) == 0 {
		fmt.Println("no waste detected")
	}
	for _, d := range snap.Detections() {
		fmt.Println(render.Label(d))
	}

	if err := writePNG(*out, canvas); err != nil {
		logger.Error("failed to write output", "path", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("wrote annotated image", "path", *out, "width", snap.Image.Width, "height", snap.Image.Height)
}

func submit(ctx context.Context, sess *session.Session, path string) error {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = sess.Upload(ctx, imaging.FileSource{Name: filepath.Base(path), Data: data})
		return err
	}

	if err := sess.StartCamera(ctx); err != nil {
		return fmt.Errorf("start camera: %w", err)
	}
	_, err := sess.Capture(ctx)
	sess.StopCamera()
	return err
}

func writePNG(path string, canvas *render.Canvas) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := canvas.EncodePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
