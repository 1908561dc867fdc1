package server

import (
	"net/http"

	"github.com/pepemanager/imageapi"
)

func handleDefault(w http.ResponseWriter, r *http.Request) {
	imageapi.ResJSON(w, imageapi.VersionBanner())
}

func handleFavicon(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	imageapi.ResJSON(w, GetHealthStats())
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	imageapi.ResError(w, imageapi.ErrNotFound)
}
