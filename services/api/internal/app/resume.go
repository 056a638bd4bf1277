package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"jobboard/internal/util"
	"jobboard/pkg/domain"
	"jobboard/pkg/resume"
)

// ResumeUpload identifies a stored resume. ResumeURL is the object key to
// pass back when applying; DownloadURL is a short-lived link to the file.
type ResumeUpload struct {
	ResumeURL   string `json:"resumeUrl"`
	DownloadURL string `json:"downloadUrl"`
	Pages       int    `json:"pages"`
	Size        int64  `json:"size"`
}

// UploadResume validates a PDF and stores it under the candidate's prefix.
func (a *App) UploadResume(ctx context.Context, user domain.User, filename string, r io.Reader) (ResumeUpload, error) {
	if user.Role != domain.RoleCandidate {
		return ResumeUpload{}, ErrResumeCandidateOnly
	}
	if a.objects == nil {
		return ResumeUpload{}, ErrResumeUnavailable
	}
	if r == nil || filename == "" {
		return ResumeUpload{}, ErrResumeRequired
	}
	if err := resume.CheckName(filename); err != nil {
		return ResumeUpload{}, ErrResumeNotPDF
	}
	data, err := io.ReadAll(io.LimitReader(r, resume.MaxSize+1))
	if err != nil {
		return ResumeUpload{}, fmt.Errorf("read resume: %w", err)
	}
	if len(data) == 0 {
		return ResumeUpload{}, ErrResumeRequired
	}
	info, err := resume.Inspect(data)
	switch {
	case errors.Is(err, resume.ErrTooLarge):
		return ResumeUpload{}, ErrResumeTooLarge
	case err != nil:
		return ResumeUpload{}, ErrResumeUnreadable
	}

	key := resumePrefix + user.ID + "/" + util.NewID() + ".pdf"
	if err := a.objects.Put(ctx, key, bytes.NewReader(data), info.Size, resume.ContentType); err != nil {
		return ResumeUpload{}, fmt.Errorf("store resume: %w", err)
	}
	link, err := a.objects.PresignGet(ctx, key, a.resumeURLTTL)
	if err != nil {
		return ResumeUpload{}, fmt.Errorf("presign resume: %w", err)
	}
	util.LoggerFromContext(ctx).Info("resume uploaded", "user_id", user.ID, "pages", info.Pages, "size", info.Size)
	return ResumeUpload{ResumeURL: key, DownloadURL: link, Pages: info.Pages, Size: info.Size}, nil
}
