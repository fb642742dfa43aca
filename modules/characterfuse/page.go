package characterfuse

import (
	"strings"

	"photo-fusion-server/modules/common/apperr"
	"photo-fusion-server/modules/common/model"
	"photo-fusion-server/modules/common/workflow"
)

const Name = "characterfuse"

type workflowRequest = workflow.Request[Params]

// NewMode - CharacterFuse 워크플로우 정의
// "Create another" keeps the uploaded photo so it can be reused with a new name.
func NewMode(svc *Service) workflow.Mode[Params] {
	return workflow.Mode[Params]{
		Name:               Name,
		Title:              "CharacterFuse AI",
		Description:        "Transform into legendary characters! Keep your face while changing into any fictional character you can imagine.",
		DownloadSuffix:     Name,
		RetainImageOnReset: true,
		Defaults:           func() Params { return Params{} },
		Validate:           validate,
		Run:                svc.run,
		StatusMessages:     func(string, Params) []string { return []string{loaderMessage} },
	}
}

// NewPage builds a fresh CharacterFuse page.
func NewPage(svc *Service, opts ...workflow.Option) workflow.Page {
	return workflow.AsPage(workflow.NewMachine(NewMode(svc), opts...))
}

func validate(img *model.UploadedImage, p Params) error {
	if img == nil || strings.TrimSpace(p.CharacterName) == "" {
		return apperr.Validation("Please upload an image and enter a character name.")
	}
	return nil
}
