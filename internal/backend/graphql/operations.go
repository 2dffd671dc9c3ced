package graphql

const messageFields = `
      body
      messageid
      author {
        username
        email
        profile_picture
        id
      }
      image
      groupid
      time
      date`

const queryGroup = `query GetGroupName($groupid: String) {
  GetGroupName(groupid: $groupid) {
    members {
      username
      profile_picture
      email
      id
    }
    name
    id
  }
}`

const queryInitialMessages = `query GetInitialMessages($groupid: String) {
  GetInitialMessages(groupid: $groupid) {` + messageFields + `
  }
}`

const subscriptionAllMessages = `subscription GetAllMessages {
  GetAllMessages {` + messageFields + `
  }
}`

const subscriptionUsersTyping = `subscription GetUsersTyping {
  GetUsersTyping {
    username
    typing
    email
    dark_theme
    online
    id
  }
}`

const mutationSendMessage = `mutation SendMessage($groupid: String, $body: String, $author: AuthorInput, $image: Boolean, $messageid: String) {
  SendMessage(groupid: $groupid, body: $body, author: $author, image: $image, messageid: $messageid)
}`

const mutationUpdateTime = `mutation UpdateTime {
  UpdateTime
}`

const mutationSwitchOnline = `mutation SwitchOnline($authorid: String, $value: Boolean) {
  SwitchOnline(authorid: $authorid, value: $value)
}`
