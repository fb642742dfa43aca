package celebify

import (
	"photo-fusion-server/modules/common/apperr"
	"photo-fusion-server/modules/common/model"
	"photo-fusion-server/modules/common/workflow"
)

const Name = "celebify"

type workflowRequest = workflow.Request[Params]

// NewMode - Celebify 워크플로우 정의
func NewMode(svc *Service) workflow.Mode[Params] {
	return workflow.Mode[Params]{
		Name:           Name,
		Title:          "Celebify",
		Description:    "Get photobombed by random celebrities! Upload your photo and let AI add famous faces to create hilarious moments.",
		DownloadSuffix: Name,
		Defaults:       func() Params { return Params{} },
		Validate:       validate,
		Run:            svc.run,
		StatusMessages: func(subject string, _ Params) []string { return loaderMessages(subject) },
	}
}

// NewPage builds a fresh Celebify page.
func NewPage(svc *Service, opts ...workflow.Option) workflow.Page {
	return workflow.AsPage(workflow.NewMachine(NewMode(svc), opts...))
}

func validate(img *model.UploadedImage, p Params) error {
	if img == nil {
		return apperr.Validation("Please upload an image first.")
	}
	if !p.Gender.Valid() {
		return apperr.Validation("Please choose a male or female celebrity.")
	}
	return nil
}
