package models

import "time"

// ElementCategory groups element types by how they behave inside a step.
type ElementCategory string

const (
	ElementCategoryInput       ElementCategory = "input"       // Collects a value from the user
	ElementCategoryContent     ElementCategory = "content"     // Static display content
	ElementCategoryIntegration ElementCategory = "integration" // Embeds an external service widget
	ElementCategoryControl     ElementCategory = "control"     // Drives step navigation or layout
)

// ElementType is the closed enumeration of element kinds a step may contain.
type ElementType string

const (
	// Form input elements.
	ElementTypeTextInput      ElementType = "text_input"
	ElementTypeTextArea       ElementType = "text_area"
	ElementTypeNumberInput    ElementType = "number_input"
	ElementTypeCurrencyInput  ElementType = "currency_input"
	ElementTypeEmailInput     ElementType = "email_input"
	ElementTypePhoneInput     ElementType = "phone_input"
	ElementTypeURLInput       ElementType = "url_input"
	ElementTypeDatePicker     ElementType = "date_picker"
	ElementTypeTimePicker     ElementType = "time_picker"
	ElementTypeDateTimePicker ElementType = "datetime_picker"
	ElementTypeDropdown       ElementType = "dropdown"
	ElementTypeMultiSelect    ElementType = "multi_select"
	ElementTypeRadioGroup     ElementType = "radio_group"
	ElementTypeCheckbox       ElementType = "checkbox"
	ElementTypeCheckboxGroup  ElementType = "checkbox_group"
	ElementTypeToggle         ElementType = "toggle"
	ElementTypeSlider         ElementType = "slider"
	ElementTypeRating         ElementType = "rating"
	ElementTypeFileUpload     ElementType = "file_upload"
	ElementTypeImageUpload    ElementType = "image_upload"
	ElementTypeSignature      ElementType = "signature"
	ElementTypeAddressInput   ElementType = "address_input"
	ElementTypeColorPicker    ElementType = "color_picker"
	ElementTypeRichTextInput  ElementType = "rich_text_input"

	// Content elements.
	ElementTypeHeading    ElementType = "heading"
	ElementTypeParagraph  ElementType = "paragraph"
	ElementTypeImage      ElementType = "image"
	ElementTypeVideo      ElementType = "video"
	ElementTypeDivider    ElementType = "divider"
	ElementTypeCallout    ElementType = "callout"
	ElementTypeLinkList   ElementType = "link_list"
	ElementTypeAttachment ElementType = "attachment"

	// Integration elements.
	ElementTypeCalendarBooking ElementType = "calendar_booking"
	ElementTypePaymentCollect  ElementType = "payment_collect"
	ElementTypeDocumentSign    ElementType = "document_sign"
	ElementTypeFormEmbed       ElementType = "form_embed"
	ElementTypeMapEmbed        ElementType = "map_embed"

	// Control elements.
	ElementTypeNextButton    ElementType = "next_button"
	ElementTypeBackButton    ElementType = "back_button"
	ElementTypeSubmitButton  ElementType = "submit_button"
	ElementTypeProgressBar   ElementType = "progress_bar"
	ElementTypeSectionBreak  ElementType = "section_break"
	ElementTypeConditionGate ElementType = "condition_gate"
)

var elementCategories = map[ElementType]ElementCategory{
	ElementTypeTextInput:      ElementCategoryInput,
	ElementTypeTextArea:       ElementCategoryInput,
	ElementTypeNumberInput:    ElementCategoryInput,
	ElementTypeCurrencyInput:  ElementCategoryInput,
	ElementTypeEmailInput:     ElementCategoryInput,
	ElementTypePhoneInput:     ElementCategoryInput,
	ElementTypeURLInput:       ElementCategoryInput,
	ElementTypeDatePicker:     ElementCategoryInput,
	ElementTypeTimePicker:     ElementCategoryInput,
	ElementTypeDateTimePicker: ElementCategoryInput,
	ElementTypeDropdown:       ElementCategoryInput,
	ElementTypeMultiSelect:    ElementCategoryInput,
	ElementTypeRadioGroup:     ElementCategoryInput,
	ElementTypeCheckbox:       ElementCategoryInput,
	ElementTypeCheckboxGroup:  ElementCategoryInput,
	ElementTypeToggle:         ElementCategoryInput,
	ElementTypeSlider:         ElementCategoryInput,
	ElementTypeRating:         ElementCategoryInput,
	ElementTypeFileUpload:     ElementCategoryInput,
	ElementTypeImageUpload:    ElementCategoryInput,
	ElementTypeSignature:      ElementCategoryInput,
	ElementTypeAddressInput:   ElementCategoryInput,
	ElementTypeColorPicker:    ElementCategoryInput,
	ElementTypeRichTextInput:  ElementCategoryInput,

	ElementTypeHeading:    ElementCategoryContent,
	ElementTypeParagraph:  ElementCategoryContent,
	ElementTypeImage:      ElementCategoryContent,
	ElementTypeVideo:      ElementCategoryContent,
	ElementTypeDivider:    ElementCategoryContent,
	ElementTypeCallout:    ElementCategoryContent,
	ElementTypeLinkList:   ElementCategoryContent,
	ElementTypeAttachment: ElementCategoryContent,

	ElementTypeCalendarBooking: ElementCategoryIntegration,
	ElementTypePaymentCollect:  ElementCategoryIntegration,
	ElementTypeDocumentSign:    ElementCategoryIntegration,
	ElementTypeFormEmbed:       ElementCategoryIntegration,
	ElementTypeMapEmbed:        ElementCategoryIntegration,

	ElementTypeNextButton:    ElementCategoryControl,
	ElementTypeBackButton:    ElementCategoryControl,
	ElementTypeSubmitButton:  ElementCategoryControl,
	ElementTypeProgressBar:   ElementCategoryControl,
	ElementTypeSectionBreak:  ElementCategoryControl,
	ElementTypeConditionGate: ElementCategoryControl,
}

// Category returns the behavioral category of the element type, or an empty
// category for unknown types.
func (t ElementType) Category() ElementCategory {
	return elementCategories[t]
}

// Valid reports whether the element type is part of the closed enumeration.
func (t ElementType) Valid() bool {
	_, ok := elementCategories[t]
	return ok
}

// Element is the leaf unit a user interacts with. Key identifies the element
// within its step and is the key submitted step data is stored under.
type Element struct {
	ID            string         `json:"id"`
	StepID        string         `json:"step_id" validate:"required"`
	Type          ElementType    `json:"element_type" validate:"required"`
	Key           string         `json:"element_key"  validate:"required,min=1"`
	Label         string         `json:"label"`
	ElementOrder  int            `json:"element_order"`
	Required      bool           `json:"required"`
	ClientVisible bool           `json:"client_visible"`
	Config        map[string]any `json:"config,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
