package cloudinary

import (
	"strings"
	"testing"
)

func TestPublicIDIsUniquePerUpload(t *testing.T) {
	a, b := PublicID(12), PublicID(12)
	if a == b {
		t.Fatalf("two uploads share %q", a)
	}
	if !strings.HasPrefix(a, "user_12_") || len(a) != len("user_12_")+12 {
		t.Errorf("PublicID = %q", a)
	}
}

func TestAvatarURL(t *testing.T) {
	got := AvatarURL("demo", "crmdesk/profiles/user_1_abc")
	want := "https://res.cloudinary.com/demo/image/upload/q_auto,f_auto,w_400,h_400,c_fill,g_face/crmdesk/profiles/user_1_abc"
	if got != want {
		t.Errorf("AvatarURL = %q", got)
	}
}
