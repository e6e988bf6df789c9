package services

import (
	"testing"

	"eventtix/models"

	pubnub "github.com/pubnub/go"
	"github.com/stretchr/testify/assert"
)

func TestRecipientChannel(t *testing.T) {
	assert.Equal(t, "recipient-email-a@b.com", recipientChannel(models.RecipientInfo{
		Type:  models.RecipientEmail,
		Value: "a@b.com",
	}))
	assert.Equal(t, "recipient-mobile-2055512345", recipientChannel(models.RecipientInfo{
		Type:  models.RecipientMobile,
		Value: "2055512345",
	}))
}

func TestPublishStatusErrorIsNilOnSuccess(t *testing.T) {
	// StatusResponse.Error is an error value, not a flag. publish treats
	// nil as success.
	var st pubnub.StatusResponse
	assert.NoError(t, st.Error)
}
