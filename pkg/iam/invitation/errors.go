package invitation

import (
	"net/http"

	"github.com/Abraxas-365/lingua/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("INVITATION")

var (
	CodeInvitationNotFound      = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Invitation not found")
	CodeInvitationAlreadyExists = ErrRegistry.Register("ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "A pending invitation already exists for this email")
)

func ErrInvitationNotFound() *errx.Error      { return ErrRegistry.New(CodeInvitationNotFound) }
func ErrInvitationAlreadyExists() *errx.Error { return ErrRegistry.New(CodeInvitationAlreadyExists) }
