package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/deskpilot-core/deskpilot/internal/graph"
	"github.com/deskpilot-core/deskpilot/internal/risk"
)

type domElement struct {
	ID          int    `json:"id"`
	Tag         string `json:"tag"`
	Role        string `json:"role"`
	Text        string `json:"text"`
	Interactive bool   `json:"interactive"`
}

type focusedInfo struct {
	Role             string `json:"role"`
	Value            string `json:"value"`
	Label            string `json:"label"`
	Secure           bool   `json:"secure"`
	SelectedChildren int    `json:"selectedChildren"`
}

// CaptureScreen screenshots the active tab. maxDimension bounds the longer
// side by scaling the capture clip; quality below 100 selects JPEG.
func (s *Service) CaptureScreen(ctx context.Context, maxDimension, quality int) ([]byte, error) {
	page, err := s.currentPage(ctx)
	if err != nil {
		return nil, err
	}
	capCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	page = page.Context(capCtx)

	req := &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng}
	if quality > 0 && quality < 100 {
		req.Format = proto.PageCaptureScreenshotFormatJpeg
		req.Quality = &quality
	}
	if clip := s.captureClip(page, maxDimension); clip != nil {
		req.Clip = clip
	}

	data, err := page.Screenshot(false, req)
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return data, nil
}

func (s *Service) captureClip(page *rod.Page, maxDimension int) *proto.PageViewport {
	if maxDimension <= 0 {
		return nil
	}
	res, err := page.Eval(`() => JSON.stringify({w: window.innerWidth, h: window.innerHeight})`)
	if err != nil {
		return nil
	}
	var size struct {
		W float64 `json:"w"`
		H float64 `json:"h"`
	}
	if err := json.Unmarshal([]byte(res.Value.String()), &size); err != nil || size.W <= 0 || size.H <= 0 {
		return nil
	}
	longest := size.W
	if size.H > longest {
		longest = size.H
	}
	scale := 1.0
	if longest > float64(maxDimension) {
		scale = float64(maxDimension) / longest
	}
	return &proto.PageViewport{X: 0, Y: 0, Width: size.W, Height: size.H, Scale: scale}
}

func (s *Service) UITreeSummary(ctx context.Context) (string, error) {
	page, err := s.currentPage(ctx)
	if err != nil {
		return "", err
	}
	evalCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := page.Context(evalCtx).Eval(uiTreeScript)
	if err != nil {
		return "", fmt.Errorf("ui tree eval: %w", err)
	}
	raw := res.Value.String()
	if raw == "" || raw == "null" {
		return "(page is empty)", nil
	}

	var elements []domElement
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		return "", fmt.Errorf("ui tree decode: %w", err)
	}

	var b strings.Builder
	for _, el := range elements {
		if el.Interactive {
			fmt.Fprintf(&b, "[%d] <%s> %s\n", el.ID, el.Tag, el.Text)
		} else {
			fmt.Fprintf(&b, "    <%s> %s\n", el.Tag, el.Text)
		}
	}
	if b.Len() == 0 {
		return "(no visible elements)", nil
	}
	return b.String(), nil
}

func (s *Service) FocusedElement(ctx context.Context) (*graph.FocusedElement, error) {
	info, err := s.focusedInfo(ctx)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, nil
	}
	role := info.Role
	if info.Secure {
		role = "secure-textfield"
	}
	return &graph.FocusedElement{
		Role:               role,
		Value:              info.Value,
		Label:              info.Label,
		SelectedChildCount: info.SelectedChildren,
	}, nil
}

func (s *Service) ActionContext(ctx context.Context) (risk.ActionContext, error) {
	page, err := s.currentPage(ctx)
	if err != nil {
		return risk.ActionContext{}, err
	}
	infoCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	info, err := page.Context(infoCtx).Info()
	if err != nil {
		return risk.ActionContext{}, fmt.Errorf("page info: %w", err)
	}

	actx := risk.ActionContext{
		ActiveAppName:     "Chromium",
		ActiveAppBundleID: "org.chromium.Chromium",
		WindowTitle:       info.Title,
		CurrentURL:        info.URL,
	}
	if focused, err := s.focusedInfo(ctx); err == nil && focused != nil {
		actx.FocusedElementRole = focused.Role
		if focused.Secure {
			actx.FocusedElementRole = "secure-textfield"
		}
		actx.FocusedElementLabel = focused.Label
	}
	return actx, nil
}

func (s *Service) focusedInfo(ctx context.Context) (*focusedInfo, error) {
	page, err := s.currentPage(ctx)
	if err != nil {
		return nil, err
	}
	evalCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := page.Context(evalCtx).Eval(focusedScript)
	if err != nil {
		return nil, fmt.Errorf("focused element eval: %w", err)
	}
	raw := res.Value.String()
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var info focusedInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, fmt.Errorf("focused element decode: %w", err)
	}
	return &info, nil
}
