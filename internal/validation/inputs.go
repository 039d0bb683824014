package validation

// Limits shared by question and answer forms.
const (
	MaxTags         = 3
	MaxTagLength    = 15
	MinTitleLength  = 5
	MaxTitleLength  = 130
	MinContentChars = 100
)

// QuestionFields are the free-text parts of a question.
type QuestionFields struct {
	Title   string `json:"title" validate:"required,min=5,max=130"`
	Content string `json:"content" validate:"required,min=100"`
}

// TagNames is a question's desired tag list after trimming and de-duplication.
type TagNames struct {
	Tags []string `json:"tags" validate:"required,min=1,max=3,dive,required,max=15"`
}

type AnswerFields struct {
	Content string `json:"content" validate:"required,min=100"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

type Registration struct {
	Credentials
	Name     string `json:"name" validate:"required,min=1,max=50"`
	Username string `json:"username" validate:"required,min=3,max=30"`
}

// OAuthProfile is the identity asserted by a trusted sign-in provider.
type OAuthProfile struct {
	Provider          string `json:"provider" validate:"required,oneof=github google"`
	ProviderAccountID string `json:"providerAccountId" validate:"required"`
	Email             string `json:"email" validate:"required,email"`
	Name              string `json:"name" validate:"required"`
	Image             string `json:"image" validate:"omitempty,url"`
	Username          string `json:"username"`
}
