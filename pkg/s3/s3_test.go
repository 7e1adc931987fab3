package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectURL(t *testing.T) {
	assert.Equal(t,
		"https://photos.s3.eu-west-1.amazonaws.com/products/u/a.jpg",
		ObjectURL("", false, "eu-west-1", "photos", "products/u/a.jpg"))

	assert.Equal(t,
		"https://photos.s3.us-east-1.amazonaws.com/a.jpg",
		ObjectURL("", false, "", "photos", "a.jpg"))

	assert.Equal(t,
		"http://localhost:9000/photos/products/u/a.jpg",
		ObjectURL("http://localhost:9000", true, "us-east-1", "photos", "products/u/a.jpg"))

	assert.Equal(t,
		"https://minio.internal/photos/a.jpg",
		ObjectURL("https://minio.internal", false, "us-east-1", "photos", "a.jpg"))
}
