package handler

type presignRequest struct {
	Filename string `json:"filename" validate:"required"`
	MimeType string `json:"mimeType" validate:"required"`
	Folder   string `json:"folder"`
}

type confirmRequest struct {
	Key          string `json:"key"          validate:"required"`
	OriginalName string `json:"originalName" validate:"required"`
	MimeType     string `json:"mimeType"     validate:"required"`
	Size         int64  `json:"size"         validate:"gte=0"`
	UploadedBy   string `json:"uploadedBy"`
}

type listFilesQuery struct {
	Page       int    `query:"page"`
	Limit      int    `query:"limit"`
	UploadedBy string `query:"uploadedBy"`
}

type fileIDParam struct {
	ID string `param:"id" validate:"required,uuid"`
}
