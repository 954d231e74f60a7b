package domain

// GenericCardContentType is the only content type a response card may carry.
const GenericCardContentType = "application/vnd.amazonaws.card.generic"

const (
	maxAttachments        = 10
	maxButtons            = 5
	maxButtonText         = 15
	maxButtonValue        = 1000
	maxAttachmentTitle    = 80
	maxAttachmentSubTitle = 80
)

// ResponseCard offers the user a set of choices for the current prompt.
type ResponseCard struct {
	Version            string              `json:"version,omitempty"`
	ContentType        string              `json:"contentType,omitempty"`
	GenericAttachments []GenericAttachment `json:"genericAttachments,omitempty"`
}

type GenericAttachment struct {
	Title             string   `json:"title,omitempty"`
	SubTitle          string   `json:"subTitle,omitempty"`
	ImageURL          string   `json:"imageUrl,omitempty"`
	AttachmentLinkURL string   `json:"attachmentLinkUrl,omitempty"`
	Buttons           []Button `json:"buttons,omitempty"`
}

type Button struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

func (c ResponseCard) Validate() error {
	if c.ContentType != GenericCardContentType {
		return invalid("responseCard.contentType", "must be %q", GenericCardContentType)
	}
	if len(c.GenericAttachments) > maxAttachments {
		return invalid("responseCard.genericAttachments", "%d entries exceed %d", len(c.GenericAttachments), maxAttachments)
	}
	for _, a := range c.GenericAttachments {
		if a.Title != "" {
			if err := checkLength("genericAttachment.title", a.Title, 1, maxAttachmentTitle); err != nil {
				return err
			}
		}
		if a.SubTitle != "" {
			if err := checkLength("genericAttachment.subTitle", a.SubTitle, 1, maxAttachmentSubTitle); err != nil {
				return err
			}
		}
		if len(a.Buttons) > maxButtons {
			return invalid("genericAttachment.buttons", "%d entries exceed %d", len(a.Buttons), maxButtons)
		}
		for _, b := range a.Buttons {
			if err := checkLength("button.text", b.Text, 1, maxButtonText); err != nil {
				return err
			}
			if err := checkLength("button.value", b.Value, 1, maxButtonValue); err != nil {
				return err
			}
		}
	}
	return nil
}
