package checks

import "slices"

// Settings are the method-name and type sets individual checks match on.
// The zero value is not useful; start from DefaultSettings and override.
type Settings struct {
	FileValidation FileValidationSettings `toml:"file_validation" yaml:"file_validation"`
	HTTPStatus     HTTPStatusSettings     `toml:"http_status" yaml:"http_status"`
	GenericCatch   GenericCatchSettings   `toml:"generic_exception" yaml:"generic_exception"`
	Upload         UploadSettings         `toml:"file_upload" yaml:"file_upload"`
	Database       DatabaseSettings       `toml:"database" yaml:"database"`
	Input          InputSettings          `toml:"input_validation" yaml:"input_validation"`
	JWT            JWTSettings            `toml:"jwt" yaml:"jwt"`
	Password       PasswordSettings       `toml:"password_encoder" yaml:"password_encoder"`
	EntryPoint     EntryPointSettings     `toml:"entry_point" yaml:"entry_point"`
	// ErrorLogCallee is the callee text that counts as error logging.
	ErrorLogCallee string `toml:"error_log_callee" yaml:"error_log_callee"`
}

type FileValidationSettings struct {
	Open     []string `toml:"open" yaml:"open"`
	Validate []string `toml:"validate" yaml:"validate"`
	Close    []string `toml:"close" yaml:"close"`
}

type HTTPStatusSettings struct {
	ResponseTypes []string `toml:"response_types" yaml:"response_types"`
	Success       []string `toml:"success" yaml:"success"`
	Failure       []string `toml:"failure" yaml:"failure"`
}

type GenericCatchSettings struct {
	Types   []string `toml:"types" yaml:"types"`
	Cleanup []string `toml:"cleanup" yaml:"cleanup"`
}

type UploadSettings struct {
	Save     []string `toml:"save" yaml:"save"`
	Validate []string `toml:"validate" yaml:"validate"`
}

type DatabaseSettings struct {
	Save []string `toml:"save" yaml:"save"`
}

type InputSettings struct {
	Sources []string `toml:"sources" yaml:"sources"`
	Valid   []string `toml:"valid" yaml:"valid"`
}

type JWTSettings struct {
	UtilityTypes []string `toml:"utility_types" yaml:"utility_types"`
	Method       string   `toml:"method" yaml:"method"`
	SecureKey    string   `toml:"secure_key" yaml:"secure_key"`
}

type PasswordSettings struct {
	Interface string   `toml:"interface" yaml:"interface"`
	Secure    []string `toml:"secure" yaml:"secure"`
	Weak      []string `toml:"weak" yaml:"weak"`
	WeakHash  []string `toml:"weak_hash" yaml:"weak_hash"`
	Critical  []string `toml:"critical" yaml:"critical"`
	Member    string   `toml:"member" yaml:"member"`
}

type EntryPointSettings struct {
	Interface string `toml:"interface" yaml:"interface"`
	Method    string `toml:"method" yaml:"method"`
	SendError string `toml:"send_error" yaml:"send_error"`
	Status    string `toml:"status" yaml:"status"`
}

func DefaultSettings() Settings {
	return Settings{
		FileValidation: FileValidationSettings{
			Open:     []string{"getInputStream", "openStream", "readFile", "read"},
			Validate: []string{"isValidFile"},
			Close:    []string{"close"},
		},
		HTTPStatus: HTTPStatusSettings{
			ResponseTypes: []string{"ResponseEntity"},
			Success:       []string{"OK", "CREATED", "ACCEPTED"},
			Failure:       []string{"BAD_REQUEST", "NOT_FOUND", "INTERNAL_SERVER_ERROR"},
		},
		GenericCatch: GenericCatchSettings{
			Types:   []string{"java.lang.Exception", "java.lang.Throwable"},
			Cleanup: []string{"close", "flush", "release", "commit"},
		},
		Upload: UploadSettings{
			Save:     []string{"save", "saveAll"},
			Validate: []string{"isValidExcelFile", "validateFileType", "validateFileSize", "scanForMalware"},
		},
		Database: DatabaseSettings{
			Save: []string{"save", "saveAll"},
		},
		Input: InputSettings{
			Sources: []string{
				"org.springframework.web.bind.annotation.RequestParam",
				"org.springframework.web.bind.annotation.RequestBody",
				"org.springframework.web.bind.annotation.PathVariable",
			},
			Valid: []string{"javax.validation.Valid", "jakarta.validation.Valid"},
		},
		JWT: JWTSettings{
			UtilityTypes: []string{"com.example.PokerPlanningBack.security.jwt.JwtUtils"},
			Method:       "validateJwtToken",
			SecureKey:    "Keys.hmacShaKeyFor",
		},
		Password: PasswordSettings{
			Interface: "org.springframework.security.crypto.password.PasswordEncoder",
			Secure:    []string{"BCryptPasswordEncoder", "Argon2PasswordEncoder", "PBKDF2PasswordEncoder", "SCryptPasswordEncoder"},
			Weak: []string{
				"NoOpPasswordEncoder", "MessageDigestPasswordEncoder", "MD5PasswordEncoder",
				"SHA1PasswordEncoder", "StandardPasswordEncoder",
			},
			WeakHash: []string{"MD5", "SHA1"},
			Critical: []string{"authenticate", "login"},
			Member:   "passwordEncoder",
		},
		EntryPoint: EntryPointSettings{
			Interface: "org.springframework.security.web.AuthenticationEntryPoint",
			Method:    "commence",
			SendError: "sendError",
			Status:    "HttpServletResponse.SC_UNAUTHORIZED",
		},
		ErrorLogCallee: "logger.error",
	}
}

// Merge returns s with every non-empty field of over applied on top.
func (s Settings) Merge(over Settings) Settings {
	pick := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = slices.Clone(src)
		}
	}
	str := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	pick(&s.FileValidation.Open, over.FileValidation.Open)
	pick(&s.FileValidation.Validate, over.FileValidation.Validate)
	pick(&s.FileValidation.Close, over.FileValidation.Close)
	pick(&s.HTTPStatus.ResponseTypes, over.HTTPStatus.ResponseTypes)
	pick(&s.HTTPStatus.Success, over.HTTPStatus.Success)
	pick(&s.HTTPStatus.Failure, over.HTTPStatus.Failure)
	pick(&s.GenericCatch.Types, over.GenericCatch.Types)
	pick(&s.GenericCatch.Cleanup, over.GenericCatch.Cleanup)
	pick(&s.Upload.Save, over.Upload.Save)
	pick(&s.Upload.Validate, over.Upload.Validate)
	pick(&s.Database.Save, over.Database.Save)
	pick(&s.Input.Sources, over.Input.Sources)
	pick(&s.Input.Valid, over.Input.Valid)
	pick(&s.JWT.UtilityTypes, over.JWT.UtilityTypes)
	str(&s.JWT.Method, over.JWT.Method)
	str(&s.JWT.SecureKey, over.JWT.SecureKey)
	str(&s.Password.Interface, over.Password.Interface)
	pick(&s.Password.Secure, over.Password.Secure)
	pick(&s.Password.Weak, over.Password.Weak)
	pick(&s.Password.WeakHash, over.Password.WeakHash)
	pick(&s.Password.Critical, over.Password.Critical)
	str(&s.Password.Member, over.Password.Member)
	str(&s.EntryPoint.Interface, over.EntryPoint.Interface)
	str(&s.EntryPoint.Method, over.EntryPoint.Method)
	str(&s.EntryPoint.SendError, over.EntryPoint.SendError)
	str(&s.EntryPoint.Status, over.EntryPoint.Status)
	str(&s.ErrorLogCallee, over.ErrorLogCallee)
	return s
}
