package syntheticapi

type GenerateQuestionResponse struct {
	Success bool   `json:"success"`
	Prompt  string `json:"prompt"`
	QaID    string `json:"qa_id"`
}
